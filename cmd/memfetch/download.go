package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"memfetch/internal/config"
	"memfetch/internal/domain"
	"memfetch/internal/export"
	"memfetch/internal/logger"
	"memfetch/internal/scheduler"
	"memfetch/internal/state"
	"memfetch/internal/transfer"
)

// workerConfirmThreshold is where we start asking before hammering the
// remote with parallel connections.
const workerConfirmThreshold = 10

func newDownloadCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "download <export.html>",
		Short: "Download every memory referenced by the export HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], configPath)
		},
	}

	cmd.Flags().StringP("output", "o", "downloads", "Output directory for downloaded files")
	cmd.Flags().Float64P("delay", "d", 1.0, "Delay between downloads in seconds")
	cmd.Flags().IntP("max-retries", "r", 3, "Maximum retry attempts per file")
	cmd.Flags().IntP("workers", "w", 1, "Number of concurrent download workers")
	cmd.Flags().Bool("strict-rate", false, "Enforce one shared global rate limit instead of per-worker pacing")
	cmd.Flags().StringVar(&configPath, "config", "", "Optional YAML configuration file")

	return cmd
}

func runDownload(cmd *cobra.Command, exportPath, configPath string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()

	if _, err := fs.Stat(exportPath); err != nil {
		return fmt.Errorf("export file not found: %s", exportPath)
	}

	if cfg.Workers > workerConfirmThreshold {
		fmt.Printf("Warning: using more than %d workers may cause rate limiting or connection issues\n", workerConfirmThreshold)
		if !confirm(cmd.InOrStdin(), "Continue anyway? (y/n): ") {
			return nil
		}
	}

	runID := ksuid.New().String()
	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout, runID)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}

	for _, dir := range []string{"images", "videos"} {
		if err := fs.MkdirAll(filepath.Join(cfg.Output, dir), 0755); err != nil {
			return fmt.Errorf("could not create output directory: %w", err)
		}
	}

	store := state.NewStore(fs, filepath.Join(cfg.Output, state.StateFileName))
	if err := store.Load(); err != nil {
		log.Warn("Starting with empty state: %v", err)
	}
	failures := state.NewFailureLog(fs, filepath.Join(cfg.Output, state.FailedLogName))

	fmt.Printf("Parsing %s...\n", exportPath)
	f, err := fs.Open(exportPath)
	if err != nil {
		return fmt.Errorf("could not read export file: %w", err)
	}
	memories, err := export.NewParser().Parse(f)
	f.Close()
	if err != nil {
		return err
	}
	fmt.Printf("Found %d memories to download\n", len(memories))

	if len(memories) == 0 {
		fmt.Println("No memories found in export file!")
		return nil
	}

	delay := time.Duration(cfg.Delay * float64(time.Second))

	var limiter *rate.Limiter
	if cfg.StrictRate && delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	client := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second}
	executor := transfer.New(client, fs, store, failures, log, cfg.Output, cfg.MaxRetries, limiter)
	sched := scheduler.New(executor, cfg.Workers, delay, log)

	bar := progressbar.NewOptions(len(memories),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)
	sched.OnProgress(func(m domain.Memory, o domain.Outcome) {
		_ = bar.Add(1)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := "(sequential)"
	if cfg.Workers > 1 {
		mode = "(parallel)"
	}
	fmt.Printf("\nStarting download of %d memories...\n", len(memories))
	fmt.Printf("Output directory: %s\n", cfg.Output)
	fmt.Printf("Already downloaded: %d\n", store.Len())
	fmt.Printf("Workers: %d %s\n", cfg.Workers, mode)
	fmt.Printf("Delay between downloads: %gs\n", cfg.Delay)
	fmt.Printf("Max retries per file: %d\n\n", cfg.MaxRetries)

	log.Info("Run started: %d memories, %d workers", len(memories), cfg.Workers)

	start := time.Now()
	stats := sched.Run(ctx, memories)
	_ = bar.Finish()
	duration := time.Since(start)

	fmt.Println()
	printSummary(stats, duration, cfg)

	if ctx.Err() != nil {
		fmt.Println("\nDownload interrupted. Progress has been saved; run again to resume.")
	}
	log.Info("Run finished: %d successful, %d skipped, %d failed", stats.Successful, stats.Skipped, stats.Failed)

	// Failed items are reported, not fatal; the run itself completed.
	return nil
}

func printSummary(stats scheduler.Stats, duration time.Duration, cfg *config.Config) {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("DOWNLOAD COMPLETE")
	fmt.Println(line)
	fmt.Printf("Total memories: %d\n", stats.Total)
	fmt.Printf("Successfully downloaded: %d\n", stats.Successful)
	fmt.Printf("Already existed (skipped): %d\n", stats.Skipped)
	fmt.Printf("Failed: %d\n", stats.Failed)
	fmt.Printf("Duration: %.1f seconds\n", duration.Seconds())
	fmt.Printf("\nFiles saved to: %s\n", cfg.Output)
	if stats.Failed > 0 {
		fmt.Printf("Failed downloads logged to: %s\n", filepath.Join(cfg.Output, state.FailedLogName))
	}
	fmt.Println(line)
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
