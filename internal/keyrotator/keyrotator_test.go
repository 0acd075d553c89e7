package keyrotator

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/example/ytresolver/internal/apierr"
)

func TestAcquire_RoundRobin(t *testing.T) {
	clk := clock.NewMock()
	r := New([]string{"k1", "k2", "k3"}, clk)

	got := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		key, err := r.Acquire()
		require.NoError(t, err)
		got = append(got, key)
	}

	require.Equal(t, []string{"k1", "k2", "k3", "k1", "k2", "k3"}, got)
}

func TestAcquire_NoKeysWhenAllCoolingDown(t *testing.T) {
	clk := clock.NewMock()
	r := New([]string{"k1"}, clk)

	r.Cooldown("k1", 60*time.Second)

	_, err := r.Acquire()
	require.True(t, apierr.Is(err, apierr.NoKeys))
}

func TestCooldown_Reintegration(t *testing.T) {
	clk := clock.NewMock()
	r := New([]string{"k1", "k2"}, clk)

	r.Cooldown("k1", 10*time.Second)
	require.Equal(t, 1, r.LiveCount())

	key, err := r.Acquire()
	require.NoError(t, err)
	require.Equal(t, "k2", key)

	clk.Add(10 * time.Second)

	key, err = r.Acquire()
	require.NoError(t, err)
	require.Equal(t, "k1", key, "k1 must reintegrate once its cooldown elapses")
}

func TestCooldown_NotReacquiredBeforeDeadline(t *testing.T) {
	clk := clock.NewMock()
	r := New([]string{"k1", "k2"}, clk)

	r.Cooldown("k1", 60*time.Second)
	clk.Add(59 * time.Second)

	for i := 0; i < 4; i++ {
		key, err := r.Acquire()
		require.NoError(t, err)
		require.NotEqual(t, "k1", key)
	}
}

func TestReset_RestoresOriginalPool(t *testing.T) {
	clk := clock.NewMock()
	r := New([]string{"k1", "k2"}, clk)

	r.Cooldown("k1", time.Hour)
	r.Reset()

	require.Equal(t, 2, r.LiveCount())
}
