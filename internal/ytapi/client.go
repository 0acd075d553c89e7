// Package ytapi is the facade over the YouTube Data API v3: channels.list,
// playlistItems.list, and videos.list, each executed through the retry
// pipeline so quota rotation, backoff, and per-tenant throttling are
// applied uniformly. It makes its own HTTP calls over net/http rather than
// depending on a generated client library.
package ytapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/ytresolver/internal/apierr"
	"github.com/example/ytresolver/internal/retry"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// localKeyRateLimit bounds requests per API key independent of the
// per-tenant Redis throttle, protecting a single process from hammering one
// key across many tenants faster than YouTube's per-key QPS allowance. This
// is defense-in-depth underneath the distributed throttle in
// internal/ratelimit, not a replacement for it.
const localKeyRateLimit = 10 // requests per second per key

// Client wraps the three list endpoints, each bound to apiKey at call time
// by the retry pipeline rather than at construction, so a single Client
// instance serves every tenant and every key in the pool.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pipeline   *retry.Pipeline

	keyLimitersMu sync.Mutex
	keyLimiters   map[string]*rate.Limiter
}

func New(pipeline *retry.Pipeline, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:     defaultBaseURL,
		httpClient:  httpClient,
		pipeline:    pipeline,
		keyLimiters: make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiterForKey(apiKey string) *rate.Limiter {
	c.keyLimitersMu.Lock()
	defer c.keyLimitersMu.Unlock()
	l, ok := c.keyLimiters[apiKey]
	if !ok {
		l = rate.NewLimiter(rate.Limit(localKeyRateLimit), localKeyRateLimit)
		c.keyLimiters[apiKey] = l
	}
	return l
}

// ChannelsList calls channels.list with the given query parameters plus the
// rotated API key, e.g. Params{"part": "id", "forHandle": "somehandle"}.
func (c *Client) ChannelsList(ctx context.Context, tenantID string, params Params) (Response, error) {
	return c.get(ctx, tenantID, "channels", params)
}

// PlaylistItemsList calls playlistItems.list.
func (c *Client) PlaylistItemsList(ctx context.Context, tenantID string, params Params) (Response, error) {
	return c.get(ctx, tenantID, "playlistItems", params)
}

// VideosList calls videos.list.
func (c *Client) VideosList(ctx context.Context, tenantID string, params Params) (Response, error) {
	return c.get(ctx, tenantID, "videos", params)
}

// Params is a query-parameter bag for one list call, e.g. {"part": "id"}.
type Params map[string]string

// Response is the decoded JSON body of a successful list call.
type Response map[string]interface{}

// Items extracts the "items" array present on every list response, or nil
// if absent/empty.
func (r Response) Items() []interface{} {
	items, _ := r["items"].([]interface{})
	return items
}

func (c *Client) get(ctx context.Context, tenantID, endpoint string, params Params) (Response, error) {
	result, err := c.pipeline.Execute(ctx, tenantID, func(ctx context.Context, apiKey string) (interface{}, error) {
		return c.doRequest(ctx, endpoint, params, apiKey)
	})
	if err != nil {
		return nil, err
	}
	resp, _ := result.(Response)
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params Params, apiKey string) (Response, error) {
	if err := c.limiterForKey(apiKey).Wait(ctx); err != nil {
		return nil, apierr.Wrap(apierr.Cancelled, "local key rate limit wait cancelled", err)
	}

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("key", apiKey)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.FatalClient, "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read youtube api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseHTTPError(resp.StatusCode, body)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode youtube api response: %w", err)
	}
	return out, nil
}

// errorEnvelope matches the YouTube Data API's standard error body:
// {"error": {"code": 403, "errors": [{"reason": "quotaExceeded", ...}]}}.
type errorEnvelope struct {
	Error struct {
		Code   int `json:"code"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func parseHTTPError(statusCode int, body []byte) *apierr.HTTPError {
	var env errorEnvelope
	var reasons []string
	if err := json.Unmarshal(body, &env); err == nil {
		for _, e := range env.Error.Errors {
			if e.Reason != "" {
				reasons = append(reasons, e.Reason)
			}
		}
	}
	return &apierr.HTTPError{StatusCode: statusCode, Reasons: reasons, Body: string(body)}
}
