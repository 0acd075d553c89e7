// Package worker implements the Job worker and the fixed-size pool that
// drains the work queue: N goroutines, each long-polling a queue.Queue
// (rather than ranging over one shared channel), so the queue can be
// backed by a remote broker as easily as an in-process buffer.
package worker

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/example/ytresolver/internal/clock"
	"github.com/example/ytresolver/internal/config"
	"github.com/example/ytresolver/internal/metrics"
	"github.com/example/ytresolver/internal/queue"
	"github.com/example/ytresolver/internal/resolver"
	"github.com/example/ytresolver/internal/retry"
	"github.com/example/ytresolver/internal/store"
)

// Worker dequeues JobTasks and drives them through the resolver to a
// terminal Job status.
type Worker struct {
	state    store.State
	resolver *resolver.Resolver
	queue    queue.Queue
	cfg      config.WorkerConfig
	metrics  *metrics.Metrics
	clock    clock.Clock
	log      zerolog.Logger
}

func New(state store.State, res *resolver.Resolver, q queue.Queue, cfg config.WorkerConfig, m *metrics.Metrics, clk clock.Clock, log zerolog.Logger) *Worker {
	return &Worker{state: state, resolver: res, queue: q, cfg: cfg, metrics: m, clock: clk, log: log.With().Str("component", "worker").Logger()}
}

// Run drains the queue until ctx is cancelled, spawning cfg.Concurrency
// goroutines that each process one task at a time.
func (w *Worker) Run(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < w.cfg.Concurrency; i++ {
		go func() {
			w.loop(ctx)
			done <- struct{}{}
		}()
	}
	for i := 0; i < w.cfg.Concurrency; i++ {
		<-done
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		task, err := w.queue.DequeueJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("dequeue job failed")
			continue
		}
		w.processTask(ctx, task)
	}
}

// processTask loads the Job and Run a task refers to, skips orphaned or
// already-terminal deliveries, and otherwise drives the Job through the
// resolver to a terminal status before nudging the finalizer.
func (w *Worker) processTask(ctx context.Context, task queue.JobTask) {
	log := w.log.With().Uint64("job_id", task.JobID).Uint64("run_id", task.RunID).Logger()

	job, err := w.state.GetJob(ctx, task.JobID)
	if err != nil {
		log.Error().Err(err).Msg("load job failed")
		return
	}
	run, err := w.state.GetRun(ctx, task.RunID)
	if err != nil {
		log.Error().Err(err).Msg("load run failed")
		return
	}
	if job == nil || run == nil {
		log.Warn().Msg("orphan task: job or run missing, skipping")
		return
	}

	// Second delivery of an already-terminal Job is a no-op, but the
	// finalizer is still nudged in case the first delivery's enqueue was
	// lost.
	if isTerminal(job.Status) {
		w.enqueueFinalize(ctx, task.RunID)
		return
	}

	job.Status = store.JobProcessing
	job.UpdatedAt = w.clock.Now().UTC()
	if err := w.state.UpdateJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("transition to PROCESSING failed")
		return
	}

	retryAttempts := 0
	softCtx, cancel := context.WithTimeout(retry.WithAttemptsCounter(ctx, &retryAttempts), w.cfg.SoftTimeout)
	result := w.resolver.Resolve(softCtx, run.OwnerID, job.InputChannel)
	ttlExceeded := errors.Is(softCtx.Err(), context.DeadlineExceeded)
	cancel()

	switch {
	case ttlExceeded:
		job.Status = store.JobFailed
		job.LastError = "TTL exceeded"
	case result.Outcome == resolver.Resolved:
		job.Status = store.JobDone
		job.YouTubeChannelID = result.ChannelID
	case result.Outcome == resolver.NeedsSearchFallback:
		job.Status = store.JobNeedsSearch
		job.LastError = "needs search fallback"
	default:
		job.Status = store.JobFailed
		job.LastError = result.Reason
	}
	// Attempts counts TRANSIENT backoff cycles spent by the retry pipeline
	// while resolving this delivery, not deliveries of the task itself; a
	// delivery resolved on the first try without any backoff leaves
	// Attempts unchanged.
	job.Attempts += retryAttempts
	job.UpdatedAt = w.clock.Now().UTC()

	if err := w.state.UpdateJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("terminal transition failed")
	}
	if w.metrics != nil {
		w.metrics.JobsProcessedTotal.WithLabelValues(string(job.Status)).Inc()
	}

	w.enqueueFinalize(ctx, task.RunID)
}

func (w *Worker) enqueueFinalize(ctx context.Context, runID uint64) {
	if err := w.queue.EnqueueFinalize(ctx, runID); err != nil {
		w.log.Error().Err(err).Uint64("run_id", runID).Msg("enqueue finalize failed")
	}
}

func isTerminal(status store.JobStatus) bool {
	switch status {
	case store.JobDone, store.JobFailed, store.JobNeedsSearch:
		return true
	default:
		return false
	}
}
