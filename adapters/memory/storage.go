// Package memory keeps the leaderboard in process memory. Useful for tests
// and single-process demos; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"scorekeeper/core"
)

// Store is a concurrent in-memory Storage implementation.
type Store struct {
	mu      sync.Mutex
	entries []core.Entry
}

func New() *Store { return &Store{} }

func (s *Store) List(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Rank(s.entries), nil
}

func (s *Store) Append(_ context.Context, e core.Entry) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = core.Rank(append(s.entries, e))
	return core.Rank(s.entries), nil
}
