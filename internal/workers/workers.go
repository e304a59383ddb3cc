package workers

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"media-converter/internal/apperror"
	"media-converter/internal/metrics"
)

// Count returns a worker count of multiplier per available CPU, at least
// 1 and at most limit (0 for no limit). It respects container CPU limits
// via GOMAXPROCS.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ToolThreads returns the thread count passed to each external tool
// invocation. A positive requested value is honoured up to the available
// CPUs; otherwise one thread per CPU is used.
func ToolThreads(requested int) int {
	available := ForCPU(0)
	if requested <= 0 || requested > available {
		return available
	}
	return requested
}

// Limiter bounds how many conversion or transcription jobs run at once.
// Each job spawns its own tool processes, so admitting more jobs than CPUs
// only makes every job slower. A nil Limiter admits everything.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
}

// JobSlots returns requested, or one slot per CPU when requested <= 0.
func JobSlots(requested int) int {
	if requested <= 0 {
		return ForCPU(0)
	}
	return requested
}

// NewLimiter returns a limiter admitting size jobs. size <= 0 means one job
// per CPU.
func NewLimiter(size int) *Limiter {
	size = JobSlots(size)
	return &Limiter{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of jobs admitted at once.
func (l *Limiter) Size() int {
	if l == nil {
		return 0
	}
	return l.size
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if l == nil {
		return func() {}, nil
	}

	metrics.JobsWaiting.Inc()
	err = l.sem.Acquire(ctx, 1)
	metrics.JobsWaiting.Dec()
	if err != nil {
		return nil, err
	}

	metrics.JobsRunning.Inc()
	return func() {
		metrics.JobsRunning.Dec()
		l.sem.Release(1)
	}, nil
}

// Admit is Acquire for request paths: a caller that gives up while queued
// gets a ToolTimeout error.
func (l *Limiter) Admit(ctx context.Context) (release func(), err error) {
	release, err = l.Acquire(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.ToolTimeout, err, "Timed out waiting for a free worker")
	}
	return release, nil
}
