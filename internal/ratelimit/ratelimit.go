// Package ratelimit implements the per-tenant throttle: at most max_requests
// per period against a sorted-set sliding window held by the counter
// service.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ytresolver/internal/apierr"
	"github.com/example/ytresolver/internal/clock"
	"github.com/example/ytresolver/internal/counter"
)

// Limiter bounds requests per tenant using counter.Service's sliding
// window.
type Limiter struct {
	service counter.Service
	clock   clock.Clock
}

func New(service counter.Service, clk clock.Clock) *Limiter {
	return &Limiter{service: service, clock: clk}
}

// Throttle blocks the caller until at most maxRequests operations have been
// observed against tenantID in the trailing period, via a three-step
// algorithm:
//  1. Drop entries with score <= now-period.
//  2. If surviving count < maxRequests, insert now and return.
//  3. Otherwise sleep until oldest+period, then insert the new now.
//
// Steps 1-2 are atomic via counter.Service.SlidingWindowAdd; step 3's sleep
// is outside the atomic region. Cancellation during the sleep surfaces as
// an apierr.Cancelled error without inserting a spurious entry.
func (l *Limiter) Throttle(ctx context.Context, tenantID string, maxRequests int, period time.Duration) error {
	key := fmt.Sprintf("throttle:%s", tenantID)
	now := l.clock.Now()

	allowed, oldest, err := l.service.SlidingWindowAdd(ctx, key, now, period, maxRequests)
	if err != nil {
		return fmt.Errorf("sliding window add: %w", err)
	}
	if allowed {
		return nil
	}

	wait := oldest.Add(period).Sub(now)
	if wait < 0 {
		wait = 0
	}

	select {
	case <-l.clock.After(wait):
	case <-ctx.Done():
		return apierr.Wrap(apierr.Cancelled, "throttle wait cancelled", ctx.Err())
	}

	if err := l.service.SlidingWindowInsert(ctx, key, l.clock.Now()); err != nil {
		return fmt.Errorf("sliding window insert: %w", err)
	}
	return nil
}
