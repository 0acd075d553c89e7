package queue

import "context"

// InMemoryQueue is a buffered-channel Queue, used in tests and single-process
// deployments where a real broker is overkill.
type InMemoryQueue struct {
	jobs      chan JobTask
	finalizes chan uint64
}

func NewInMemoryQueue(buffer int) *InMemoryQueue {
	return &InMemoryQueue{
		jobs:      make(chan JobTask, buffer),
		finalizes: make(chan uint64, buffer),
	}
}

func (q *InMemoryQueue) EnqueueJob(ctx context.Context, task JobTask) error {
	select {
	case q.jobs <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) EnqueueFinalize(ctx context.Context, runID uint64) error {
	select {
	case q.finalizes <- runID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) DequeueJob(ctx context.Context) (JobTask, error) {
	select {
	case t := <-q.jobs:
		return t, nil
	case <-ctx.Done():
		return JobTask{}, ctx.Err()
	}
}

func (q *InMemoryQueue) DequeueFinalize(ctx context.Context) (uint64, error) {
	select {
	case id := <-q.finalizes:
		return id, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
