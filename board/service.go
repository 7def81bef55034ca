package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scorekeeper/core"
	"scorekeeper/realtime"
)

// ErrUnavailable wraps storage failures so transport layers can map them to
// a generic unavailability response without leaking filesystem detail.
var ErrUnavailable = errors.New("leaderboard unavailable")

// Service validates submissions, stamps them, and runs them through the
// configured Storage. Successful submissions are published on the bus.
type Service struct {
	storage Storage
	bus     *EventBus
	now     func() time.Time
}

// Option configures the Service builder.
type Option func(*builder)

type builder struct {
	storage Storage
	mode    DispatchMode
	hub     *realtime.Hub
	now     func() time.Time
}

// WithStorage sets the persistence adapter.
func WithStorage(s Storage) Option { return func(b *builder) { b.storage = s } }

// WithDispatchMode selects sync or async update dispatch.
func WithDispatchMode(m DispatchMode) Option { return func(b *builder) { b.mode = m } }

// WithRealtime wires a realtime hub to receive every leaderboard update.
func WithRealtime(h *realtime.Hub) Option { return func(b *builder) { b.hub = h } }

// WithClock overrides the submission timestamp source (tests).
func WithClock(now func() time.Time) Option { return func(b *builder) { b.now = now } }

// New builds a configured Service. A Storage must be provided.
func New(opts ...Option) *Service {
	b := &builder{mode: DispatchAsync, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	if b.storage == nil {
		panic("board.New requires a Storage (use WithStorage)")
	}
	bus := NewEventBus(b.mode)
	if b.hub != nil {
		bus.Subscribe(func(ctx context.Context, up core.Update) { b.hub.Broadcast(ctx, up) })
	}
	return &Service{storage: b.storage, bus: bus, now: b.now}
}

// Subscribe registers a handler for leaderboard updates. Returns
// unsubscribe func.
func (s *Service) Subscribe(handler func(context.Context, core.Update)) func() {
	return s.bus.Subscribe(handler)
}

// Close stops the update bus.
func (s *Service) Close() { s.bus.Close() }

// Top returns the current ranked leaderboard. The result is re-ranked
// defensively; the store's read path is shared with untrusted file state.
func (s *Service) Top(ctx context.Context) ([]core.Entry, error) {
	entries, err := s.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return core.Rank(entries), nil
}

// Submit runs the validation pipeline and appends the entry. Checks
// short-circuit: the first failure is the only error reported, and nothing
// touches storage before validation passes.
func (s *Service) Submit(ctx context.Context, rawName string, rawScore json.RawMessage) (core.Entry, []core.Entry, error) {
	name := core.CleanName(rawName)
	if name == "" {
		return core.Entry{}, nil, core.ErrNameRequired
	}
	score, err := core.ParseScore(rawScore)
	if err != nil {
		return core.Entry{}, nil, err
	}

	entry := core.Entry{Name: name, Score: score, SavedAt: core.Stamp(s.now())}
	entries, err := s.storage.Append(ctx, entry)
	if err != nil {
		return core.Entry{}, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.bus.Publish(ctx, core.Update{Saved: entry, Entries: entries})
	return entry, entries, nil
}
