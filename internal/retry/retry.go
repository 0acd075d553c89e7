// Package retry implements the retry/execute pipeline: it wraps a single
// API invocation with per-tenant throttling, key rotation on quota errors,
// and bounded exponential backoff with jitter on transient errors.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/example/ytresolver/internal/apierr"
	"github.com/example/ytresolver/internal/clock"
	"github.com/example/ytresolver/internal/config"
	"github.com/example/ytresolver/internal/keyrotator"
	"github.com/example/ytresolver/internal/metrics"
	"github.com/example/ytresolver/internal/ratelimit"
)

// quotaReasons are the YouTube Data API error.errors[*].reason values that
// classify a 403 as a quota exhaustion rather than a fatal client error.
var quotaReasons = []string{"quotaExceeded", "dailyLimitExceeded", "userRateLimitExceeded"}

// attemptsCounterKey is the context key under which WithAttemptsCounter
// stashes its counter.
type attemptsCounterKey struct{}

// WithAttemptsCounter returns a context that accumulates the number of
// TRANSIENT backoff cycles consumed by every Execute call made with it into
// *counter. Quota-triggered key rotations are not counted, since they carry
// no backoff and no attempt cost. Callers that need to persist a per-Job
// retry count (rather than just observe the RetryAttemptsTotal metric) wrap
// their context once before invoking the resolver/API facade and read
// *counter afterward.
func WithAttemptsCounter(ctx context.Context, counter *int) context.Context {
	return context.WithValue(ctx, attemptsCounterKey{}, counter)
}

func bumpAttemptsCounter(ctx context.Context) {
	if c, ok := ctx.Value(attemptsCounterKey{}).(*int); ok {
		*c++
	}
}

// Invoke performs one API call bound to apiKey and returns the decoded
// result, or an error (ideally an *apierr.HTTPError so the pipeline can
// classify it).
type Invoke func(ctx context.Context, apiKey string) (interface{}, error)

// Config holds the pipeline's tunable constants.
type Config struct {
	MaxRetries       int
	InitialBackoff   time.Duration
	BackoffFactor    float64
	CooldownDuration time.Duration
	ThrottleMax      int
	ThrottlePeriod   time.Duration
}

// Pipeline executes a single API invocation with retry, backoff, quota-aware
// key rotation, and per-tenant rate limiting.
type Pipeline struct {
	rotator *keyrotator.Rotator
	limiter *ratelimit.Limiter
	clock   clock.Clock
	cfg     Config
	metrics *metrics.Metrics
}

func New(rotator *keyrotator.Rotator, limiter *ratelimit.Limiter, clk clock.Clock, cfg Config, m *metrics.Metrics) *Pipeline {
	return &Pipeline{rotator: rotator, limiter: limiter, clock: clk, cfg: cfg, metrics: m}
}

// ConfigFromApp builds a retry.Config from the top-level application config,
// so main() doesn't need to restate the tunable constants at each call
// site.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		MaxRetries:       cfg.Retry.MaxRetries,
		InitialBackoff:   cfg.Retry.InitialBackoff,
		BackoffFactor:    cfg.Retry.BackoffFactor,
		CooldownDuration: cfg.KeyPool.CooldownDuration,
		ThrottleMax:      cfg.RateLimit.MaxRequests,
		ThrottlePeriod:   cfg.RateLimit.Period,
	}
}

// Execute throttles, acquires a key, and invokes fn, retrying on transient
// failures with exponential backoff and jitter, and rotating past keys that
// report quota exhaustion, until fn succeeds or the retry budget is spent.
func (p *Pipeline) Execute(ctx context.Context, tenantID string, fn Invoke) (interface{}, error) {
	backoff := p.cfg.InitialBackoff
	attempts := 0

	for attempts < p.cfg.MaxRetries {
		if err := p.limiter.Throttle(ctx, tenantID, p.cfg.ThrottleMax, p.cfg.ThrottlePeriod); err != nil {
			return nil, err
		}

		key, err := p.rotator.Acquire()
		if err != nil {
			return nil, err
		}

		result, err := fn(ctx, key)
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return nil, apierr.Wrap(apierr.Cancelled, "context cancelled during request", ctx.Err())
		}

		var httpErr *apierr.HTTPError
		if errors.As(err, &httpErr) {
			switch {
			case httpErr.StatusCode == 403 && httpErr.HasReason(quotaReasons...):
				p.recordRetry(apierr.Quota)
				p.rotator.Cooldown(key, p.cfg.CooldownDuration)
				continue // no sleep, no backoff increment, no attempt increment

			case httpErr.StatusCode == 429 || httpErr.StatusCode >= 500:
				p.recordRetry(apierr.Transient)
				bumpAttemptsCounter(ctx)
				attempts++
				if attempts >= p.cfg.MaxRetries {
					return nil, apierr.Wrap(apierr.RetriesExhausted, "retries exhausted", err)
				}
				if sleepErr := p.sleepWithJitter(ctx, backoff); sleepErr != nil {
					return nil, sleepErr
				}
				backoff = time.Duration(float64(backoff) * p.cfg.BackoffFactor)
				continue

			default:
				return nil, apierr.Wrap(apierr.FatalClient, "non-retriable client error", err)
			}
		}

		// Network-level or decode error with no classification available:
		// treat as transient, bounded by the same retry budget.
		p.recordRetry(apierr.Transient)
		bumpAttemptsCounter(ctx)
		attempts++
		if attempts >= p.cfg.MaxRetries {
			return nil, apierr.Wrap(apierr.RetriesExhausted, "retries exhausted", err)
		}
		if sleepErr := p.sleepWithJitter(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
		backoff = time.Duration(float64(backoff) * p.cfg.BackoffFactor)
	}

	return nil, apierr.New(apierr.RetriesExhausted, "retries exhausted")
}

func (p *Pipeline) sleepWithJitter(ctx context.Context, backoff time.Duration) error {
	jitter := time.Duration(rand.Float64() * float64(time.Second))
	select {
	case <-p.clock.After(backoff + jitter):
		return nil
	case <-ctx.Done():
		return apierr.Wrap(apierr.Cancelled, "backoff sleep cancelled", ctx.Err())
	}
}

func (p *Pipeline) recordRetry(kind apierr.Kind) {
	if p.metrics == nil {
		return
	}
	p.metrics.RetryAttemptsTotal.WithLabelValues(string(kind)).Inc()
}
