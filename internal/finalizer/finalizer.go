// Package finalizer converges a Run to FINISHED exactly once, using a
// non-blocking named lock from internal/counter to stay safe against
// concurrent finalize attempts for the same Run.
package finalizer

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ytresolver/internal/clock"
	"github.com/example/ytresolver/internal/counter"
	"github.com/example/ytresolver/internal/metrics"
	"github.com/example/ytresolver/internal/store"
)

const lockTTL = 60 * time.Second

// Finalizer owns the Run-convergence algorithm. It holds no state of its
// own; all state lives in the store and the counter service's lock.
type Finalizer struct {
	state   store.State
	counter counter.Service
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(state store.State, counter counter.Service, clk clock.Clock, m *metrics.Metrics) *Finalizer {
	return &Finalizer{state: state, counter: counter, clock: clk, metrics: m}
}

// Finalize attempts to converge runID to FINISHED. It returns false (with a
// nil error) whenever convergence did not happen this call: lock contention,
// Run missing or already FINISHED, or any Job still PENDING/PROCESSING. All
// of these are valid, frequent outcomes, not failures.
func (f *Finalizer) Finalize(ctx context.Context, runID uint64) (bool, error) {
	lockKey := fmt.Sprintf("finalize_run_lock:%d", runID)
	release, acquired, err := f.counter.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire finalize lock: %w", err)
	}
	if !acquired {
		return false, nil
	}
	defer release()

	run, err := f.state.GetRun(ctx, runID)
	if err != nil {
		return false, fmt.Errorf("load run: %w", err)
	}
	if run == nil || run.Status == store.RunFinished {
		return false, nil
	}

	jobs, err := f.state.JobsForRun(ctx, runID)
	if err != nil {
		return false, fmt.Errorf("load jobs: %w", err)
	}
	for _, job := range jobs {
		if job.Status == store.JobPending || job.Status == store.JobProcessing {
			return false, nil
		}
	}

	summary := &store.Summary{Total: len(jobs)}
	for _, job := range jobs {
		switch job.Status {
		case store.JobDone:
			summary.Done++
		case store.JobFailed:
			summary.Failed++
		case store.JobNeedsSearch:
			summary.NeedsSearch++
		}
	}

	now := f.clock.Now().UTC()
	summary.DurationSeconds = roundTo2(now.Sub(run.CreatedAt).Seconds())

	run.Status = store.RunFinished
	run.FinishedAt = &now
	run.Summary = summary

	if err := f.state.UpdateRun(ctx, run); err != nil {
		return false, fmt.Errorf("update run: %w", err)
	}

	if f.metrics != nil {
		f.metrics.RunsFinalizedTotal.Inc()
	}
	return true, nil
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
