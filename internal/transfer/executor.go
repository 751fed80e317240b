// Package transfer executes a single memory's fetch: skip checks against the
// state store and the disk, the mode-appropriate protocol with bounded retry
// and exponential backoff, and overlay-archive normalization on success.
package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"memfetch/internal/archive"
	"memfetch/internal/domain"
	"memfetch/internal/logger"
	"memfetch/internal/naming"
	"memfetch/internal/state"
)

const (
	routeTagHeader = "X-Snap-Route-Tag"
	routeTagValue  = "mem-dmd"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Executor downloads memories. It is shared read-only by all workers: the
// HTTP client, store and failure log carry their own synchronization, and
// per-request headers are built fresh for every attempt.
type Executor struct {
	client   *http.Client
	fs       afero.Fs
	store    *state.Store
	failures *state.FailureLog
	log      *logger.Logger

	outDir     string
	maxRetries int

	// limiter, when set, enforces strict global pacing across workers.
	limiter *rate.Limiter

	// backoffUnit is the base for the 2^attempt inter-attempt sleep.
	// Tests shrink it; production keeps one second.
	backoffUnit time.Duration
}

func New(client *http.Client, fs afero.Fs, store *state.Store, failures *state.FailureLog,
	log *logger.Logger, outDir string, maxRetries int, limiter *rate.Limiter) *Executor {
	return &Executor{
		client:      client,
		fs:          fs,
		store:       store,
		failures:    failures,
		log:         log,
		outDir:      outDir,
		maxRetries:  maxRetries,
		limiter:     limiter,
		backoffUnit: time.Second,
	}
}

// Download runs the per-memory state machine and returns its terminal
// outcome. All failure handling happens inside; callers only aggregate.
func (e *Executor) Download(ctx context.Context, m domain.Memory) domain.Outcome {
	key := naming.Key(m.Locator)

	if e.store.Contains(key) {
		return domain.OutcomeSkippedKnown
	}

	target := naming.TargetPath(e.outDir, m)

	// A non-empty file at the target with no state entry means a prior run
	// was interrupted after the write; reconcile instead of re-downloading.
	if info, err := e.fs.Stat(target); err == nil && info.Size() > 0 {
		if err := e.store.Record(key, target); err != nil {
			e.log.Warn("Could not record reconciled state for %s: %v", filepath.Base(target), err)
		}
		return domain.OutcomeSkippedOnDisk
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		err := e.attempt(ctx, m, target)
		if err == nil {
			if err := e.store.Record(key, target); err != nil {
				// Documented resumability risk: the download stands, the
				// next run will reconcile it via the on-disk check.
				e.log.Warn("Could not persist state for %s: %v", filepath.Base(target), err)
			}
			return domain.OutcomeDownloaded
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < e.maxRetries-1 {
			e.log.Warn("Attempt %d/%d for %s failed: %v", attempt+1, e.maxRetries, m.Locator, err)
			if !sleepCtx(ctx, time.Duration(1<<attempt)*e.backoffUnit) {
				break
			}
		}
	}

	cause := fmt.Errorf("failed after %d attempts: %v", e.maxRetries, lastErr)
	e.log.Error("Permanent failure for %s: %v", m.Locator, lastErr)
	if err := e.failures.Append(m.Locator, cause); err != nil {
		e.log.Warn("Could not write failure log: %v", err)
	}
	return domain.OutcomeFailed
}

// attempt performs one full fetch-write-normalize cycle.
func (e *Executor) attempt(ctx context.Context, m domain.Memory, target string) error {
	var body []byte
	var err error
	if m.Mode == domain.ModeDirect {
		body, err = e.fetchDirect(ctx, m.Locator)
	} else {
		body, err = e.fetchIndirect(ctx, m.Locator)
	}
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return domain.ErrEmptyBody
	}

	if err := afero.WriteFile(e.fs, target, body, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", target, err)
	}

	// Overlay archives are unwrapped in place. Failure to unwrap keeps the
	// original bytes and is never a transfer failure.
	if archive.IsArchive(e.fs, target) {
		if err := archive.ExtractMain(e.fs, target); err != nil {
			e.log.Warn("Could not unwrap archive %s: %v", filepath.Base(target), err)
		}
	}
	return nil
}

// fetchDirect GETs the locator with the fixed routing header.
func (e *Executor) fetchDirect(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid locator: %w", err)
	}
	applyDefaultHeaders(req)
	req.Header.Set(routeTagHeader, routeTagValue)

	return e.do(req)
}

// fetchIndirect POSTs the locator's query string to its base URL as a form
// body; the plain-text response is itself the URL to GET.
func (e *Executor) fetchIndirect(ctx context.Context, locator string) ([]byte, error) {
	base, query, _ := strings.Cut(locator, "?")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("invalid locator: %w", err)
	}
	applyDefaultHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	redirect, err := e.do(req)
	if err != nil {
		return nil, fmt.Errorf("redirect request failed: %w", err)
	}

	downloadURL := strings.TrimSpace(string(redirect))
	if downloadURL == "" {
		return nil, fmt.Errorf("redirect response carried no download URL")
	}

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL %q: %w", downloadURL, err)
	}
	applyDefaultHeaders(dlReq)

	return e.do(dlReq)
}

func (e *Executor) do(req *http.Request) ([]byte, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	return body, nil
}

func applyDefaultHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Connection", "keep-alive")
}

// sleepCtx sleeps for d unless the context ends first. Reports whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
