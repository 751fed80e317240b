// Package scheduler drives the run: strictly sequential at one worker, a
// fixed pool above that, with delay-after-success pacing and synchronized
// run statistics.
package scheduler

import (
	"context"
	"sync"
	"time"

	"memfetch/internal/domain"
	"memfetch/internal/logger"
)

// Runner executes one memory to a terminal outcome. Satisfied by
// *transfer.Executor; tests substitute stubs.
type Runner interface {
	Download(ctx context.Context, m domain.Memory) domain.Outcome
}

// Stats are the run counters. Failed items still complete the run; the
// caller decides what to do with the summary.
type Stats struct {
	Total      int
	Successful int
	Skipped    int
	Failed     int
}

type Scheduler struct {
	runner  Runner
	workers int
	delay   time.Duration
	log     *logger.Logger

	mu    sync.Mutex
	stats Stats

	progress func(m domain.Memory, o domain.Outcome)
}

func New(runner Runner, workers int, delay time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		workers: workers,
		delay:   delay,
		log:     log,
	}
}

// OnProgress registers a callback fired once per completed memory, from
// whichever goroutine finished it.
func (s *Scheduler) OnProgress(fn func(m domain.Memory, o domain.Outcome)) {
	s.progress = fn
}

// Run processes every memory and returns the final counters. Cancelling ctx
// stops dispatch promptly; items already in flight finish or abort on their
// own request contexts.
func (s *Scheduler) Run(ctx context.Context, memories []domain.Memory) Stats {
	s.mu.Lock()
	s.stats = Stats{Total: len(memories)}
	s.mu.Unlock()

	if s.workers <= 1 {
		s.runSequential(ctx, memories)
	} else {
		s.runPool(ctx, memories)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// runSequential preserves extraction order and paces with a delay after each
// non-failed item, skipping the delay after the final one.
func (s *Scheduler) runSequential(ctx context.Context, memories []domain.Memory) {
	for i, m := range memories {
		if ctx.Err() != nil {
			s.log.Info("Dispatch stopped: %v", ctx.Err())
			return
		}

		outcome := s.runner.Download(ctx, m)
		s.finish(m, outcome)

		if outcome != domain.OutcomeFailed && i < len(memories)-1 {
			if !sleepCtx(ctx, s.delay) {
				return
			}
		}
	}
}

// runPool fans memories out to a fixed worker pool. Each worker sleeps the
// delay after its own non-failed item before taking new work, bounding the
// aggregate rate to roughly workers/delay.
func (s *Scheduler) runPool(ctx context.Context, memories []domain.Memory) {
	jobs := make(chan domain.Memory)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, jobs)
		}()
	}

	for _, m := range memories {
		select {
		case <-ctx.Done():
			s.log.Info("Dispatch stopped: %v", ctx.Err())
			close(jobs)
			wg.Wait()
			return
		case jobs <- m:
		}
	}
	close(jobs)
	wg.Wait()
}

func (s *Scheduler) worker(ctx context.Context, jobs <-chan domain.Memory) {
	for m := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		outcome := s.runner.Download(ctx, m)
		s.finish(m, outcome)

		if outcome != domain.OutcomeFailed {
			if !sleepCtx(ctx, s.delay) {
				return
			}
		}
	}
}

func (s *Scheduler) finish(m domain.Memory, outcome domain.Outcome) {
	s.mu.Lock()
	switch {
	case outcome == domain.OutcomeDownloaded:
		s.stats.Successful++
	case outcome.Skipped():
		s.stats.Skipped++
	default:
		s.stats.Failed++
	}
	s.mu.Unlock()

	if s.progress != nil {
		s.progress(m, outcome)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
