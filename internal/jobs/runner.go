// Package jobs runs the periodic background work: the expiry/promotion scan
// and the reminder dispatcher. Each job is one goroutine on a fixed ticker;
// overlapping ticks are coalesced (skipped, never queued).
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner drives one periodic function. A mutex with TryLock guarantees at
// most one execution at a time; a tick arriving while the previous run is
// still in flight is dropped.
type Runner struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       func(ctx context.Context) error
	logger   *slog.Logger

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewRunner creates a runner. Each run gets a context bounded by timeout.
func NewRunner(name string, interval, timeout time.Duration, fn func(ctx context.Context) error, logger *slog.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		timeout:  timeout,
		fn:       fn,
		logger:   logger,
	}
}

// Start launches the tick loop. It returns immediately; the loop stops when
// ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("job started", "job", r.name, "interval", r.interval)
		for {
			select {
			case <-ticker.C:
				r.RunOnce(ctx)
			case <-ctx.Done():
				r.logger.Info("job stopped", "job", r.name)
				return
			}
		}
	}()
}

// Wait blocks until the tick loop has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// RunOnce executes the job now unless a run is already in flight, in which
// case it reports false and does nothing.
func (r *Runner) RunOnce(ctx context.Context) bool {
	if !r.mu.TryLock() {
		r.logger.Debug("previous run still in flight, skipping tick", "job", r.name)
		return false
	}
	defer r.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.fn(runCtx); err != nil {
		r.logger.Warn("job run failed", "job", r.name, "error", err)
	}
	return true
}
