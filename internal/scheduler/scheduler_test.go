package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memfetch/internal/domain"
	"memfetch/internal/logger"
)

// stubRunner returns a canned outcome per locator and records call order.
type stubRunner struct {
	mu       sync.Mutex
	outcomes map[string]domain.Outcome
	calls    []string
}

func (r *stubRunner) Download(ctx context.Context, m domain.Memory) domain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, m.Locator)
	if o, ok := r.outcomes[m.Locator]; ok {
		return o
	}
	return domain.OutcomeDownloaded
}

func memoriesN(n int) []domain.Memory {
	out := make([]domain.Memory, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Memory{Locator: fmt.Sprintf("https://example.com/m?sid=%04d", i)})
	}
	return out
}

func TestSequentialPreservesOrder(t *testing.T) {
	runner := &stubRunner{}
	memories := memoriesN(20)

	sched := New(runner, 1, 0, logger.Nop())
	stats := sched.Run(context.Background(), memories)

	require.Equal(t, 20, stats.Total)
	assert.Equal(t, 20, stats.Successful)

	var want []string
	for _, m := range memories {
		want = append(want, m.Locator)
	}
	assert.Equal(t, want, runner.calls)
}

func TestPoolCountersSumToTotal(t *testing.T) {
	const total = 500
	memories := memoriesN(total)

	outcomes := make(map[string]domain.Outcome)
	for i, m := range memories {
		switch {
		case i%2 == 1:
			outcomes[m.Locator] = domain.OutcomeFailed
		case i%10 == 0:
			outcomes[m.Locator] = domain.OutcomeSkippedKnown
		}
	}
	runner := &stubRunner{outcomes: outcomes}

	sched := New(runner, 8, 0, logger.Nop())
	stats := sched.Run(context.Background(), memories)

	assert.Equal(t, total, stats.Total)
	assert.Equal(t, total, stats.Successful+stats.Skipped+stats.Failed)
	assert.Equal(t, 250, stats.Failed)
	assert.Equal(t, 25, stats.Skipped)
	assert.Equal(t, 225, stats.Successful)
	assert.Len(t, runner.calls, total)
}

func TestProgressFiresOncePerMemory(t *testing.T) {
	runner := &stubRunner{}
	memories := memoriesN(50)

	var mu sync.Mutex
	seen := 0
	sched := New(runner, 4, 0, logger.Nop())
	sched.OnProgress(func(m domain.Memory, o domain.Outcome) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	sched.Run(context.Background(), memories)
	assert.Equal(t, 50, seen)
}

func TestCancelledContextStopsDispatch(t *testing.T) {
	runner := &stubRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sched := New(runner, 1, 0, logger.Nop())
	stats := sched.Run(ctx, memoriesN(10))

	assert.Equal(t, 10, stats.Total)
	assert.Empty(t, runner.calls)
	assert.Zero(t, stats.Successful+stats.Skipped+stats.Failed)
}

func TestSequentialDelaysAfterSuccessOnly(t *testing.T) {
	outcomes := map[string]domain.Outcome{
		"https://example.com/m?sid=0000": domain.OutcomeFailed,
		"https://example.com/m?sid=0001": domain.OutcomeFailed,
	}
	runner := &stubRunner{outcomes: outcomes}
	memories := memoriesN(3) // two failures, one success (the last item)

	sched := New(runner, 1, 200*time.Millisecond, logger.Nop())
	start := time.Now()
	stats := sched.Run(context.Background(), memories)
	elapsed := time.Since(start)

	assert.Equal(t, 1, stats.Successful)
	assert.Equal(t, 2, stats.Failed)
	// no delay after failures, none after the final item
	assert.Less(t, elapsed, 150*time.Millisecond)
}
