// Package counter abstracts the shared counter/lock service: per-tenant
// sliding-window counters for the rate limiter and named advisory locks for
// the finalizer. Two implementations satisfy the same interface:
// InMemoryService (tests, single-process reference deployments) and
// RedisService (production, backed by github.com/redis/go-redis/v9).
package counter

import (
	"context"
	"time"
)

// Service is the counter/lock interface the rate limiter and finalizer
// depend on.
type Service interface {
	// SlidingWindowAdd atomically drops entries with score <= now-period,
	// and if the surviving count is below max, inserts now and reports
	// allowed=true. If the window is full, allowed is false and oldest is
	// the currently-oldest surviving entry's timestamp, letting the caller
	// compute how long to sleep before retrying.
	SlidingWindowAdd(ctx context.Context, key string, now time.Time, period time.Duration, max int) (allowed bool, oldest time.Time, err error)

	// SlidingWindowInsert inserts now into the window unconditionally. It is
	// used after the caller has slept past the oldest entry's expiry.
	SlidingWindowInsert(ctx context.Context, key string, now time.Time) error

	// TryLock acquires a non-blocking named advisory lock with a TTL. ok is
	// false if the lock is already held. release must be called to free the
	// lock early; it is a no-op after the TTL has elapsed.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
