package orchestrator

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/example/ytresolver/internal/counter"
	"github.com/example/ytresolver/internal/finalizer"
	"github.com/example/ytresolver/internal/queue"
	"github.com/example/ytresolver/internal/store"
)

func newTestOrchestrator() (*Orchestrator, *store.InMemoryState, queue.Queue) {
	clk := clock.NewMock()
	state := store.NewInMemoryState()
	q := queue.NewInMemoryQueue(16)
	fin := finalizer.New(state, counter.NewInMemoryService(), clk, nil)
	return New(state, q, fin, clk), state, q
}

func TestStartRun_NormalizesAndDedupsInputs(t *testing.T) {
	orch, _, q := newTestOrchestrator()

	result, err := orch.StartRun(context.Background(), 1, "owner-1", []string{" ", "", " @x ", "@x"})
	require.NoError(t, err)
	require.Equal(t, 1, result.JobsCreated)

	task, err := q.DequeueJob(context.Background())
	require.NoError(t, err)
	require.Equal(t, result.RunID, task.RunID)
}

func TestStartRun_ZeroJobsFinalizesSynchronously(t *testing.T) {
	orch, state, _ := newTestOrchestrator()

	result, err := orch.StartRun(context.Background(), 1, "owner-1", []string{"  ", ""})
	require.NoError(t, err)
	require.Equal(t, 0, result.JobsCreated)

	run, err := state.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Equal(t, store.RunFinished, run.Status)
	require.NotNil(t, run.Summary)
	require.Equal(t, 0, run.Summary.Total)
}

func TestGetRunStatus_ComputesProgressAndFailedJobs(t *testing.T) {
	orch, state, _ := newTestOrchestrator()
	ctx := context.Background()

	result, err := orch.StartRun(ctx, 1, "owner-1", []string{"a", "b", "c"})
	require.NoError(t, err)

	jobs, err := state.JobsForRun(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	jobs[0].Status = store.JobDone
	require.NoError(t, state.UpdateJob(ctx, jobs[0]))
	jobs[1].Status = store.JobFailed
	jobs[1].LastError = "unrecognized"
	require.NoError(t, state.UpdateJob(ctx, jobs[1]))
	// jobs[2] stays PENDING

	status, err := orch.GetRunStatus(ctx, result.RunID)
	require.NoError(t, err)
	require.Equal(t, 3, status.Total)
	require.InDelta(t, 2.0/3.0, status.Progress, 0.001)
	require.Len(t, status.FailedJobs, 1)
	require.Equal(t, jobs[1].ID, status.FailedJobs[0].JobID)
}

func TestGetRunStatus_UnknownRunReturnsErrNotFound(t *testing.T) {
	orch, _, _ := newTestOrchestrator()

	_, err := orch.GetRunStatus(context.Background(), 999)
	require.ErrorIs(t, err, store.ErrNotFound)
}
