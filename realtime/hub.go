// Package realtime fans leaderboard updates out to live subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"scorekeeper/core"
)

// Hub is a simple pub/sub distributing updates over per-subscriber
// channels. Slow subscribers miss updates rather than stall the rest.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan core.Update
	next   int
	closed bool
}

func NewHub() *Hub { return &Hub{subs: map[int]chan core.Update{}} }

// Subscribe registers a buffered update channel and returns its id for
// Unsubscribe. Non-positive buffers are clamped to 1.
func (h *Hub) Subscribe(buffer int) (int, <-chan core.Update) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan core.Update, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes the subscriber channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast delivers the update to every subscriber, dropping it for any
// whose channel is full.
func (h *Hub) Broadcast(_ context.Context, up core.Update) {
	h.mu.RLock()
	receivers := make([]chan core.Update, 0, len(h.subs))
	for _, ch := range h.subs {
		receivers = append(receivers, ch)
	}
	h.mu.RUnlock()

	for _, ch := range receivers {
		select {
		case ch <- up:
		default:
		}
	}
}

// Close detaches and closes all subscribers. Later Subscribe calls get an
// already-closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// MarshalJSON converts an update to JSON bytes for WebSocket delivery.
func MarshalJSON(up core.Update) []byte {
	b, _ := json.Marshal(up)
	return b
}
