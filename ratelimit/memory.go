package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Each server process enforces the
// limit independently; deployments needing shared enforcement use the
// Redis store instead.
type MemoryStore struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	nextSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string][]time.Time)}
}

func (s *MemoryStore) Admit(_ context.Context, key string, window time.Duration, max int, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	s.sweep(cutoff, now, window)

	timestamps := prune(s.requests[key], cutoff)

	if len(timestamps) >= max {
		s.requests[key] = timestamps
		return false, nil
	}

	s.requests[key] = append(timestamps, now)
	return true, nil
}

// sweep drops identities whose every timestamp has aged out, so idle
// clients do not accumulate in the map. Paced to once per window.
func (s *MemoryStore) sweep(cutoff, now time.Time, window time.Duration) {
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(window)
	for key, timestamps := range s.requests {
		if valid := prune(timestamps, cutoff); len(valid) == 0 {
			delete(s.requests, key)
		} else {
			s.requests[key] = valid
		}
	}
}

// prune keeps timestamps at or after the cutoff.
func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	valid := make([]time.Time, 0, len(timestamps)+1)
	for _, ts := range timestamps {
		if !ts.Before(cutoff) {
			valid = append(valid, ts)
		}
	}
	return valid
}
