package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/example/ytresolver/internal/counter"
)

func TestThrottle_AllowsUpToMaxWithoutSleep(t *testing.T) {
	clk := clock.NewMock()
	svc := counter.NewInMemoryService()
	l := New(svc, clk)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		done := make(chan struct{})
		go func() {
			require.NoError(t, l.Throttle(ctx, "tenant-a", 5, time.Second))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("throttle blocked on a call within the allowance")
		}
	}
}

func TestThrottle_SixthCallWaitsOutWindow(t *testing.T) {
	clk := clock.NewMock()
	svc := counter.NewInMemoryService()
	l := New(svc, clk)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Throttle(ctx, "tenant-a", 5, time.Second))
	}

	sixthDone := make(chan error, 1)
	go func() {
		sixthDone <- l.Throttle(ctx, "tenant-a", 5, time.Second)
	}()

	// Give the goroutine a chance to block on the mock clock's After.
	time.Sleep(10 * time.Millisecond)
	select {
	case <-sixthDone:
		t.Fatal("sixth call returned before the window elapsed")
	default:
	}

	clk.Add(time.Second)

	select {
	case err := <-sixthDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sixth call never unblocked after advancing the clock")
	}
}

func TestThrottle_CancellationDuringWaitSurfacesError(t *testing.T) {
	clk := clock.NewMock()
	svc := counter.NewInMemoryService()
	l := New(svc, clk)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Throttle(ctx, "tenant-b", 5, time.Second))
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Throttle(cancelCtx, "tenant-b", 5, time.Second) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-errCh
	require.Error(t, err)
}

func TestThrottle_ConcurrentCallersNeverExceedMaxPerWindow(t *testing.T) {
	clk := clock.New()
	svc := counter.NewInMemoryService()
	l := New(svc, clk)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var completions []time.Time

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Throttle(ctx, "tenant-c", 5, 200*time.Millisecond))
			mu.Lock()
			completions = append(completions, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, completions, 8)
	for _, c := range completions {
		count := 0
		for _, other := range completions {
			if other.After(c.Add(-200*time.Millisecond)) && !other.After(c) {
				count++
			}
		}
		require.LessOrEqual(t, count, 5, "no 200ms window should contain more than 5 completions")
	}
}
