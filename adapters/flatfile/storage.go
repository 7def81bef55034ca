// Package flatfile persists the leaderboard to a single pipe-delimited
// text file. The file is the sole source of truth: every operation re-reads
// it, and Append rewrites it whole under an advisory file lock so separate
// server processes sharing the file cannot lose updates.
package flatfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"scorekeeper/core"
)

// lockRetryDelay paces lock acquisition attempts; the caller's context
// bounds the overall wait.
const lockRetryDelay = 50 * time.Millisecond

// Store owns the persisted leaderboard file.
type Store struct {
	path string
	mu   sync.Mutex
	fl   *flock.Flock
}

// New creates the file with 0644 if absent (idempotently: an existing file
// is never truncated by a second creator) and returns the store.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create leaderboard dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create leaderboard file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create leaderboard file: %w", err)
	}
	return &Store{path: path, fl: flock.New(path)}, nil
}

// List decodes the full file without locking. A torn read during a
// concurrent write degrades to dropped lines, which the next successful
// Append corrects from its own authoritative read.
func (s *Store) List(_ context.Context) ([]core.Entry, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read leaderboard file: %w", err)
	}
	return core.Rank(core.Decode(b)), nil
}

// Append adds one entry under mutual exclusion: in-process mutex plus a
// cross-process advisory lock on the file. The current contents are
// re-read while holding the lock, the entry is merged, ranked, and the
// file is rewritten as one buffered write flushed before unlock.
func (s *Store) Append(ctx context.Context, e core.Entry) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock leaderboard file: %w", err)
	}
	if !locked {
		return nil, errors.New("lock leaderboard file: not acquired")
	}
	defer func() { _ = s.fl.Unlock() }()

	b, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read leaderboard file: %w", err)
	}

	entries := core.Rank(append(core.Decode(b), e))
	if err := s.writeAll(core.Encode(entries)); err != nil {
		return nil, err
	}
	return entries, nil
}

// writeAll replaces the file contents with a single write and fsync.
func (s *Store) writeAll(data []byte) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open leaderboard file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write leaderboard file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush leaderboard file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close leaderboard file: %w", err)
	}
	return nil
}
