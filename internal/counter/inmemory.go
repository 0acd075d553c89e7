package counter

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryService is the reference Service backend: one sorted slice of
// timestamps per sliding-window key and one map of held locks, both
// guarded by a single mutex so the drop-and-maybe-insert sequence is
// trivially atomic.
type InMemoryService struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	locks   map[string]time.Time // key -> expiry
}

func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		windows: make(map[string][]time.Time),
		locks:   make(map[string]time.Time),
	}
}

func (s *InMemoryService) SlidingWindowAdd(ctx context.Context, key string, now time.Time, period time.Duration, max int) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.windows[key]
	cutoff := now.Add(-period)
	kept := entries[:0:0]
	for _, t := range entries {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) < max {
		kept = append(kept, now)
		sort.Slice(kept, func(i, j int) bool { return kept[i].Before(kept[j]) })
		s.windows[key] = kept
		return true, time.Time{}, nil
	}

	s.windows[key] = kept
	return false, kept[0], nil
}

func (s *InMemoryService) SlidingWindowInsert(ctx context.Context, key string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.windows[key], now)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })
	s.windows[key] = entries
	return nil
}

func (s *InMemoryService) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, held := s.locks[key]; held && expiry.After(now) {
		return nil, false, nil
	}

	expiry := now.Add(ttl)
	s.locks[key] = expiry
	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Only free the lock while this holder still owns it.
		if cur, held := s.locks[key]; held && cur.Equal(expiry) {
			delete(s.locks, key)
		}
	}
	return release, true, nil
}
