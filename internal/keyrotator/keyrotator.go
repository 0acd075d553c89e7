// Package keyrotator manages the pool of YouTube API credentials: a
// round-robin rotation over live keys, with cooldown-and-reintegration for
// keys that report quota exhaustion rather than permanent removal.
package keyrotator

import (
	"sync"
	"time"

	"github.com/example/ytresolver/internal/apierr"
	"github.com/example/ytresolver/internal/clock"
)

// Rotator owns an ordered live pool of keys plus a cooldown map. All
// operations are mutually exclusive.
type Rotator struct {
	mu       sync.Mutex
	clock    clock.Clock
	original []string // the original, ordered pool, for reset()

	live      []string
	cooldowns map[string]time.Time // key -> cooldown_until
	nextIdx   int
}

// New loads keys once from an ordered slice at construction (any
// comma-splitting of a configuration string happens in internal/config).
func New(keys []string, clk clock.Clock) *Rotator {
	live := append([]string(nil), keys...)
	return &Rotator{
		clock:     clk,
		original:  append([]string(nil), keys...),
		live:      live,
		cooldowns: make(map[string]time.Time),
	}
}

// Acquire returns the next live key using round-robin, after reintegrating
// any key whose cooldown has expired. Fails with apierr.NoKeys if the live
// pool is empty after reintegration.
func (r *Rotator) Acquire() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reintegrateLocked()

	if len(r.live) == 0 {
		return "", apierr.New(apierr.NoKeys, "no API keys available")
	}

	if r.nextIdx >= len(r.live) {
		r.nextIdx = 0
	}
	key := r.live[r.nextIdx]
	// Left unwrapped so a key reintegrated at the end of the pool is served
	// next instead of restarting from the head; the check above wraps it.
	r.nextIdx++
	return key, nil
}

// Cooldown removes key from the live pool and sets its cooldown_until.
// Idempotent: cooling down an already-cooling key only refreshes the
// deadline.
func (r *Rotator) Cooldown(key string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cooldowns[key] = r.clock.Now().Add(duration)

	for i, k := range r.live {
		if k == key {
			r.live = append(r.live[:i:i], r.live[i+1:]...)
			if r.nextIdx > i {
				r.nextIdx--
			}
			break
		}
	}
}

// Reset clears cooldowns and restores the original pool.
func (r *Rotator) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cooldowns = make(map[string]time.Time)
	r.live = append([]string(nil), r.original...)
	r.nextIdx = 0
}

// LiveCount reports the current size of the live pool, for metrics.
func (r *Rotator) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// reintegrateLocked moves any key whose cooldown has expired back into the
// live pool. Caller must hold r.mu.
func (r *Rotator) reintegrateLocked() {
	now := r.clock.Now()
	for key, until := range r.cooldowns {
		if now.Before(until) {
			continue
		}
		delete(r.cooldowns, key)
		if !contains(r.live, key) {
			r.live = append(r.live, key)
		}
	}
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
