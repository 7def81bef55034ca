package board

import (
	"context"
	"sync"
	"time"

	"scorekeeper/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

type subscription struct {
	id int64
	fn func(context.Context, core.Update)
}

// EventBus fans leaderboard updates out to subscribers, synchronously or
// through a buffered async queue.
type EventBus struct {
	mode       DispatchMode
	mu         sync.RWMutex
	subs       map[int64]subscription
	nextID     int64
	asyncQueue chan core.Update
	workers    int
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBus(mode DispatchMode) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		mode:       mode,
		subs:       make(map[int64]subscription),
		asyncQueue: make(chan core.Update, 256),
		workers:    2,
		ctx:        ctx,
		cancel:     cancel,
	}
	if mode == DispatchAsync {
		eb.startWorkers()
	}
	return eb
}

func (e *EventBus) startWorkers() {
	for i := 0; i < e.workers; i++ {
		go func() {
			for {
				select {
				case up := <-e.asyncQueue:
					e.dispatchSync(context.Background(), up)
				case <-e.ctx.Done():
					return
				}
			}
		}()
	}
}

// Close stops async workers.
func (e *EventBus) Close() {
	e.cancel()
	// allow workers to drain briefly
	time.Sleep(10 * time.Millisecond)
}

// Subscribe registers a handler for updates. Returns unsubscribe func.
func (e *EventBus) Subscribe(handler func(context.Context, core.Update)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.subs[id] = subscription{id: id, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// Publish delivers an update to subscribers. Async mode drops on a full
// queue rather than stalling the submission path.
func (e *EventBus) Publish(ctx context.Context, up core.Update) {
	if e.mode == DispatchAsync {
		select {
		case e.asyncQueue <- up:
		default:
		}
		return
	}
	e.dispatchSync(ctx, up)
}

func (e *EventBus) dispatchSync(ctx context.Context, up core.Update) {
	e.mu.RLock()
	handlers := make([]func(context.Context, core.Update), 0, len(e.subs))
	for _, s := range e.subs {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, up)
	}
}
