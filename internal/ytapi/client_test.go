package ytapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/example/ytresolver/internal/apierr"
	"github.com/example/ytresolver/internal/counter"
	"github.com/example/ytresolver/internal/keyrotator"
	"github.com/example/ytresolver/internal/ratelimit"
	"github.com/example/ytresolver/internal/retry"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	clk := clock.NewMock()
	rotator := keyrotator.New([]string{"test-key"}, clk)
	limiter := ratelimit.New(counter.NewInMemoryService(), clk)
	cfg := retry.Config{
		MaxRetries:       3,
		InitialBackoff:   time.Millisecond,
		BackoffFactor:    2.0,
		CooldownDuration: time.Minute,
		ThrottleMax:      100,
		ThrottlePeriod:   time.Second,
	}
	pipeline := retry.New(rotator, limiter, clk, cfg, nil)
	c := New(pipeline, &http.Client{})
	c.baseURL = serverURL
	return c
}

func TestChannelsList_DecodesSuccessResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/channels", r.URL.Path)
		require.Equal(t, "MrBeast", r.URL.Query().Get("forHandle"))
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]string{{"id": "UCX6OQ3DkcsbYNE6H8uQQuVA"}},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.ChannelsList(context.Background(), "tenant-1", Params{"part": "id", "forHandle": "MrBeast"})
	require.NoError(t, err)
	require.Len(t, resp.Items(), 1)
}

func TestChannelsList_ParsesQuotaErrorReasons(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"code": 403,
				"errors": []map[string]string{
					{"reason": "quotaExceeded"},
				},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.ChannelsList(context.Background(), "tenant-1", Params{"part": "id", "forHandle": "x"})

	require.True(t, apierr.Is(err, apierr.NoKeys), "single key on cooldown after its quota error exhausts the pool")
}
