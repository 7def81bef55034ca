package board

import (
	"context"

	"scorekeeper/core"
)

// Storage abstracts the persisted leaderboard. Implementations own their
// backing resource exclusively during Append; List tolerates concurrent
// writers by dropping whatever a torn read mangles.
type Storage interface {
	// List returns the current ranked leaderboard.
	List(ctx context.Context) ([]core.Entry, error)
	// Append adds an entry under mutual exclusion and returns the resulting
	// ranked, truncated leaderboard.
	Append(ctx context.Context, e core.Entry) ([]core.Entry, error)
}
