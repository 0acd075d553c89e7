// Package queue models the work queue that carries
// job-processing and run-finalize tasks from the orchestrator to the
// worker pool. An in-memory implementation backs tests and single-process
// deployments; a Redis-list-backed implementation backs the durable,
// cross-process case.
package queue

import "context"

// JobTask is one job-processing delivery: resolve job JobID, belonging to
// run RunID.
type JobTask struct {
	JobID uint64
	RunID uint64
}

// Queue is the work-queue contract workers consume and the orchestrator and
// worker produce onto. Dequeuing removes a task; neither implementation in
// this package redelivers a task whose consumer stops before finishing it.
type Queue interface {
	EnqueueJob(ctx context.Context, task JobTask) error
	EnqueueFinalize(ctx context.Context, runID uint64) error

	// DequeueJob blocks until a JobTask is available or ctx is done.
	DequeueJob(ctx context.Context) (JobTask, error)
	// DequeueFinalize blocks until a run ID is available or ctx is done.
	DequeueFinalize(ctx context.Context) (uint64, error)
}
