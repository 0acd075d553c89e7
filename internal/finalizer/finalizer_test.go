package finalizer

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/example/ytresolver/internal/counter"
	"github.com/example/ytresolver/internal/store"
)

func seedRun(t *testing.T, state *store.InMemoryState, createdAt time.Time, jobStatuses ...store.JobStatus) uint64 {
	t.Helper()
	ctx := context.Background()

	runID, err := state.NextRunID(ctx)
	require.NoError(t, err)
	require.NoError(t, state.CreateRun(ctx, &store.Run{ID: runID, Status: store.RunRunning, CreatedAt: createdAt}))

	for _, status := range jobStatuses {
		jobID, err := state.NextJobID(ctx)
		require.NoError(t, err)
		require.NoError(t, state.CreateJob(ctx, &store.Job{ID: jobID, RunID: runID, Status: status}))
	}
	return runID
}

func TestFinalize_WaitsForPendingJobs(t *testing.T) {
	clk := clock.NewMock()
	state := store.NewInMemoryState()
	runID := seedRun(t, state, clk.Now(), store.JobDone, store.JobPending)

	f := New(state, counter.NewInMemoryService(), clk, nil)
	converged, err := f.Finalize(context.Background(), runID)

	require.NoError(t, err)
	require.False(t, converged)
}

func TestFinalize_ConvergesWhenAllJobsTerminal(t *testing.T) {
	clk := clock.NewMock()
	start := clk.Now()
	state := store.NewInMemoryState()
	runID := seedRun(t, state, start, store.JobDone, store.JobFailed)

	clk.Add(5 * time.Second)
	f := New(state, counter.NewInMemoryService(), clk, nil)

	converged, err := f.Finalize(context.Background(), runID)
	require.NoError(t, err)
	require.True(t, converged)

	run, err := state.GetRun(context.Background(), runID)
	require.NoError(t, err)
	require.Equal(t, store.RunFinished, run.Status)
	require.NotNil(t, run.Summary)
	require.Equal(t, 2, run.Summary.Total)
	require.Equal(t, 1, run.Summary.Done)
	require.Equal(t, 1, run.Summary.Failed)
	require.InDelta(t, 5.0, run.Summary.DurationSeconds, 0.01)
}

func TestFinalize_IsIdempotent(t *testing.T) {
	clk := clock.NewMock()
	state := store.NewInMemoryState()
	runID := seedRun(t, state, clk.Now(), store.JobDone)

	svc := counter.NewInMemoryService()
	f := New(state, svc, clk, nil)

	first, err := f.Finalize(context.Background(), runID)
	require.NoError(t, err)
	require.True(t, first)

	firstRun, err := state.GetRun(context.Background(), runID)
	require.NoError(t, err)

	second, err := f.Finalize(context.Background(), runID)
	require.NoError(t, err)
	require.False(t, second, "finalizing an already-FINISHED run must be a no-op")

	secondRun, err := state.GetRun(context.Background(), runID)
	require.NoError(t, err)
	require.Equal(t, firstRun.Summary, secondRun.Summary)
}

func TestFinalize_MissingRunIsNoop(t *testing.T) {
	clk := clock.NewMock()
	state := store.NewInMemoryState()
	f := New(state, counter.NewInMemoryService(), clk, nil)

	converged, err := f.Finalize(context.Background(), 999)
	require.NoError(t, err)
	require.False(t, converged)
}
