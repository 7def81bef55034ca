// Package ratelimit enforces a per-identity sliding-window cap on
// leaderboard submissions. The limiter owns no leaderboard state and shares
// no lock with it; a slow limit check can never block a write.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultWindow is the trailing interval submissions are counted over.
	DefaultWindow = 60 * time.Second
	// DefaultMaxPerWindow is the submissions allowed per identity per window.
	DefaultMaxPerWindow = 5
)

// Store records submissions per identity within a sliding window.
// Implementations prune timestamps older than now-window on every access.
type Store interface {
	// Admit reports whether the identity is under max for the window ending
	// at now. When admitted, now is recorded; rejected calls record nothing.
	Admit(ctx context.Context, key string, window time.Duration, max int, now time.Time) (bool, error)
}

// Limiter applies the admission policy over a Store.
type Limiter struct {
	store    Store
	window   time.Duration
	max      int
	failOpen bool
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithFailOpen controls behavior when the store errors: true admits the
// request (availability over strict enforcement), false rejects it.
func WithFailOpen(failOpen bool) Option {
	return func(l *Limiter) { l.failOpen = failOpen }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a Limiter. Non-positive window or max fall back to defaults.
func New(store Store, window time.Duration, maxPerWindow int, opts ...Option) *Limiter {
	if store == nil {
		panic("ratelimit.New requires a Store")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if maxPerWindow <= 0 {
		maxPerWindow = DefaultMaxPerWindow
	}
	l := &Limiter{store: store, window: window, max: maxPerWindow, failOpen: true, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Admit reports whether a submission from the identity may proceed.
func (l *Limiter) Admit(ctx context.Context, identity string) bool {
	ok, err := l.store.Admit(ctx, identity, l.window, l.max, l.now())
	if err != nil {
		slog.Warn("rate limit store unavailable", "error", err, "fail_open", l.failOpen)
		return l.failOpen
	}
	return ok
}
