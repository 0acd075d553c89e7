// Package orchestrator accepts a batch of channel inputs, allocates a Run
// and one Job per normalized input, enqueues the Jobs for the worker pool,
// and answers status queries by tallying Job states for a Run. It runs in
// the request-handling process, separate from the worker pool that drains
// the job queue.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/example/ytresolver/internal/clock"
	"github.com/example/ytresolver/internal/finalizer"
	"github.com/example/ytresolver/internal/queue"
	"github.com/example/ytresolver/internal/store"
)

type Orchestrator struct {
	state     store.State
	queue     queue.Queue
	finalizer *finalizer.Finalizer
	clock     clock.Clock
}

func New(state store.State, q queue.Queue, f *finalizer.Finalizer, clk clock.Clock) *Orchestrator {
	return &Orchestrator{state: state, queue: q, finalizer: f, clock: clk}
}

// StartResult reports the allocated run and how many jobs it produced.
type StartResult struct {
	RunID       uint64
	JobsCreated int
}

// StartRun normalizes inputs, allocates a Run and one Job per input,
// enqueues each Job, and finalizes synchronously when there are no jobs to
// process at all.
func (o *Orchestrator) StartRun(ctx context.Context, analysisID int64, ownerID string, inputs []string) (*StartResult, error) {
	normalized := normalizeInputs(inputs)

	runID, err := o.state.NextRunID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate run id: %w", err)
	}

	run := &store.Run{
		ID:         runID,
		AnalysisID: analysisID,
		OwnerID:    ownerID,
		Status:     store.RunRunning,
		CreatedAt:  o.clock.Now().UTC(),
	}
	if err := o.state.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	for _, input := range normalized {
		jobID, err := o.state.NextJobID(ctx)
		if err != nil {
			return nil, fmt.Errorf("allocate job id: %w", err)
		}
		now := o.clock.Now().UTC()
		job := &store.Job{
			ID:           jobID,
			RunID:        runID,
			InputChannel: input,
			Status:       store.JobPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := o.state.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("create job: %w", err)
		}
		if err := o.queue.EnqueueJob(ctx, queue.JobTask{JobID: jobID, RunID: runID}); err != nil {
			return nil, fmt.Errorf("enqueue job: %w", err)
		}
	}

	if len(normalized) == 0 {
		if _, err := o.finalizer.Finalize(ctx, runID); err != nil {
			return nil, fmt.Errorf("synchronous finalize: %w", err)
		}
	}

	return &StartResult{RunID: runID, JobsCreated: len(normalized)}, nil
}

// normalizeInputs trims, discards empty strings, and deduplicates while
// preserving sorted order, so e.g. [" ", "", " @x ", "@x"] collapses to a
// single Job with input "@x".
func normalizeInputs(inputs []string) []string {
	seen := make(map[string]struct{}, len(inputs))
	for _, raw := range inputs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		seen[trimmed] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// FailedJob is one entry of get_run_status's failed_jobs list.
type FailedJob struct {
	JobID uint64
	Input string
	Error string
}

// StatusCounts is the per-status Job tally for a Run.
type StatusCounts struct {
	Pending     int
	Processing int
	Done        int
	Failed      int
	NeedsSearch int
}

// RunStatus is the shape returned by a status query against a Run.
type RunStatus struct {
	RunID       uint64
	Status      store.RunStatus
	Total       int
	Counts      StatusCounts
	Progress    float64
	FailedJobs  []FailedJob
	Summary     *store.Summary
}

// GetRunStatus tallies the current state of every Job under runID and
// reports aggregate progress.
func (o *Orchestrator) GetRunStatus(ctx context.Context, runID uint64) (*RunStatus, error) {
	run, err := o.state.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return nil, store.ErrNotFound
	}

	jobs, err := o.state.JobsForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	status := &RunStatus{RunID: runID, Status: run.Status, Total: len(jobs), Summary: run.Summary}
	for _, job := range jobs {
		switch job.Status {
		case store.JobPending:
			status.Counts.Pending++
		case store.JobProcessing:
			status.Counts.Processing++
		case store.JobDone:
			status.Counts.Done++
		case store.JobFailed:
			status.Counts.Failed++
			status.FailedJobs = append(status.FailedJobs, FailedJob{JobID: job.ID, Input: job.InputChannel, Error: job.LastError})
		case store.JobNeedsSearch:
			status.Counts.NeedsSearch++
		}
	}

	if status.Total == 0 {
		status.Progress = 1.0
	} else {
		settled := status.Counts.Done + status.Counts.Failed + status.Counts.NeedsSearch
		status.Progress = float64(settled) / float64(status.Total)
	}

	return status, nil
}
