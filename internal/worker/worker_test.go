package worker

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/example/ytresolver/internal/config"
	"github.com/example/ytresolver/internal/queue"
	"github.com/example/ytresolver/internal/resolver"
	"github.com/example/ytresolver/internal/store"
	"github.com/example/ytresolver/internal/ytapi"
)

type fakeChannelsLister struct {
	response ytapi.Response
	err      error
}

func (f *fakeChannelsLister) ChannelsList(ctx context.Context, tenantID string, params ytapi.Params) (ytapi.Response, error) {
	return f.response, f.err
}

func newTestWorker(t *testing.T, state store.State, res *resolver.Resolver) (*Worker, queue.Queue) {
	t.Helper()
	clk := clock.NewMock()
	q := queue.NewInMemoryQueue(4)
	cfg := config.WorkerConfig{Concurrency: 1, SoftTimeout: time.Minute, HardTimeout: time.Hour}
	return New(state, res, q, cfg, nil, clk, zerolog.Nop()), q
}

func TestProcessTask_OrphanSkipsWithoutPanic(t *testing.T) {
	state := store.NewInMemoryState()
	w, _ := newTestWorker(t, state, resolver.New(&fakeChannelsLister{}))

	w.processTask(context.Background(), queue.JobTask{JobID: 999, RunID: 999})
	// No assertion beyond "did not panic": an orphan task is a pure no-op.
}

func TestProcessTask_DirectChannelIDResolvesToDone(t *testing.T) {
	ctx := context.Background()
	state := store.NewInMemoryState()

	require.NoError(t, state.CreateRun(ctx, &store.Run{ID: 1, OwnerID: "owner-1", Status: store.RunRunning}))
	require.NoError(t, state.CreateJob(ctx, &store.Job{ID: 1, RunID: 1, InputChannel: "UCX6OQ3DkcsbYNE6H8uQQuVA", Status: store.JobPending}))

	w, q := newTestWorker(t, state, resolver.New(&fakeChannelsLister{}))
	w.processTask(ctx, queue.JobTask{JobID: 1, RunID: 1})

	job, err := state.GetJob(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, store.JobDone, job.Status)
	require.Equal(t, "UCX6OQ3DkcsbYNE6H8uQQuVA", job.YouTubeChannelID)

	runID, err := q.DequeueFinalize(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, runID)
}

func TestProcessTask_SecondDeliveryOfTerminalJobIsNoop(t *testing.T) {
	ctx := context.Background()
	state := store.NewInMemoryState()

	require.NoError(t, state.CreateRun(ctx, &store.Run{ID: 1, OwnerID: "owner-1", Status: store.RunRunning}))
	require.NoError(t, state.CreateJob(ctx, &store.Job{ID: 1, RunID: 1, InputChannel: "@whatever", Status: store.JobDone, YouTubeChannelID: "UCX6OQ3DkcsbYNE6H8uQQuVA"}))

	w, q := newTestWorker(t, state, resolver.New(&fakeChannelsLister{}))
	w.processTask(ctx, queue.JobTask{JobID: 1, RunID: 1})

	job, err := state.GetJob(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, store.JobDone, job.Status)
	require.Equal(t, "UCX6OQ3DkcsbYNE6H8uQQuVA", job.YouTubeChannelID, "re-delivery must not reprocess a terminal job")

	runID, err := q.DequeueFinalize(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, runID)
}
