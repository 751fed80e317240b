package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"memfetch/internal/logger"
	"memfetch/internal/tag"
)

func newTagCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "tag <directory>",
		Short: "Stamp capture dates onto downloaded memories based on their filenames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing metadata instead of skipping tagged files")

	return cmd
}

func runTag(dir string, force bool) error {
	fs := afero.NewOsFs()

	info, err := fs.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory not found: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	log, err := logger.New("memfetch.log", logger.LevelInfo, false, ksuid.New().String())
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}

	tagger, err := tag.New(fs, dir, force, log)
	if err != nil {
		return err
	}

	files, err := tagger.FindMedia()
	if err != nil {
		return err
	}
	fmt.Printf("Scanning directory: %s\n", dir)
	fmt.Printf("Found %d media files\n", len(files))
	if len(files) == 0 {
		fmt.Println("No media files found!")
		return nil
	}
	if force {
		fmt.Println("Force mode: will overwrite existing metadata")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Setting metadata"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)

	stats, err := tagger.Run(ctx, func(string) { _ = bar.Add(1) })
	_ = bar.Finish()
	fmt.Println()
	if err != nil && ctx.Err() == nil {
		return err
	}

	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("METADATA SETTING COMPLETE")
	fmt.Println(line)
	fmt.Printf("Total files: %d\n", stats.Total)
	fmt.Printf("Successfully processed: %d\n", stats.Processed)
	fmt.Printf("Skipped: %d\n", stats.Skipped)
	fmt.Printf("Failed: %d\n", stats.Failed)
	fmt.Println(line)

	if ctx.Err() != nil {
		fmt.Println("\nInterrupted by user.")
	}
	return nil
}
