package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryState_CreateRun_ConflictOnDuplicateID(t *testing.T) {
	s := NewInMemoryState()
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, &Run{ID: 1, Status: RunRunning}))
	err := s.CreateRun(ctx, &Run{ID: 1, Status: RunRunning})
	require.ErrorIs(t, err, ErrConflict)
}

func TestInMemoryState_UpdateRun_NotFoundWhenMissing(t *testing.T) {
	s := NewInMemoryState()
	err := s.UpdateRun(context.Background(), &Run{ID: 42})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryState_GetRun_MissingReturnsNilNotError(t *testing.T) {
	s := NewInMemoryState()
	run, err := s.GetRun(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestInMemoryState_Clone_IsolatesCallerFromInternalState(t *testing.T) {
	s := NewInMemoryState()
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, &Run{ID: 1, Status: RunRunning}))

	got, err := s.GetRun(ctx, 1)
	require.NoError(t, err)
	got.Status = RunFinished

	reread, err := s.GetRun(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, RunRunning, reread.Status, "mutating a returned Run must not affect stored state")
}

func TestInMemoryState_JobsForRun_ReturnsOnlyThatRunsJobs(t *testing.T) {
	s := NewInMemoryState()
	ctx := context.Background()

	require.NoError(t, s.CreateJob(ctx, &Job{ID: 1, RunID: 100, Status: JobPending}))
	require.NoError(t, s.CreateJob(ctx, &Job{ID: 2, RunID: 100, Status: JobPending}))
	require.NoError(t, s.CreateJob(ctx, &Job{ID: 3, RunID: 200, Status: JobPending}))

	jobs, err := s.JobsForRun(ctx, 100)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}

func TestInMemoryState_Clear_ResetsIDsAndData(t *testing.T) {
	s := NewInMemoryState()
	ctx := context.Background()

	id, err := s.NextRunID(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	require.NoError(t, s.CreateRun(ctx, &Run{ID: id, Status: RunRunning}))
	s.Clear()

	id, err = s.NextRunID(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	run, err := s.GetRun(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestIsValidChannelID(t *testing.T) {
	require.True(t, IsValidChannelID("UCX6OQ3DkcsbYNE6H8uQQuVA"))
	require.False(t, IsValidChannelID("not-a-channel-id"))
	require.False(t, IsValidChannelID("UCshort"))
}
