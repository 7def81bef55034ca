package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"scorekeeper/core"
)

// Sink posts leaderboard updates to configured HTTP endpoints.
// It is synchronous for determinism; keep the endpoint list short or
// subscribe it on an async bus.
type Sink struct {
	client    *http.Client
	endpoints []string
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// OnUpdate posts the update JSON to all endpoints; delivery is best-effort
// and failures are ignored.
func (s *Sink) OnUpdate(ctx context.Context, up core.Update) {
	if len(s.endpoints) == 0 {
		return
	}
	body, err := json.Marshal(up)
	if err != nil {
		return
	}
	for _, ep := range s.endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep, bytes.NewReader(body))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
	}
}
