package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/ytresolver/internal/apierr"
)

func TestLoad_FailsWithoutAPIKeys(t *testing.T) {
	os.Unsetenv("YT_API_KEYS")

	_, err := Load("")
	require.True(t, apierr.Is(err, apierr.Config))
}

func TestLoad_SplitsAndTrimsAPIKeys(t *testing.T) {
	t.Setenv("YT_API_KEYS", " k1, k2 ,k3")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"k1", "k2", "k3"}, cfg.YTAPIKeys)
}

func TestLoad_AppliesRedisMaxConnectionsOverride(t *testing.T) {
	t.Setenv("YT_API_KEYS", "k1")
	t.Setenv("REDIS_MAX_CONNECTIONS", "100")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 100, cfg.RedisMaxConnections)
}

func TestLoad_RejectsNonIntegerRedisMaxConnections(t *testing.T) {
	t.Setenv("YT_API_KEYS", "k1")
	t.Setenv("REDIS_MAX_CONNECTIONS", "not-a-number")

	_, err := Load("")
	require.True(t, apierr.Is(err, apierr.Config))
}

func TestDefault_MatchesSpecGivenConstants(t *testing.T) {
	cfg := Default()
	require.Equal(t, 5, cfg.RateLimit.MaxRequests)
	require.Equal(t, 5, cfg.Retry.MaxRetries)
	require.Equal(t, 2.0, cfg.Retry.BackoffFactor)
}
