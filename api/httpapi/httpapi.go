// Package httpapi exposes the leaderboard over HTTP.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	wsadapter "scorekeeper/adapters/websocket"
	"scorekeeper/board"
	"scorekeeper/core"
	"scorekeeper/ratelimit"
	"scorekeeper/realtime"
)

// DefaultMaxBodyBytes caps POST bodies.
const DefaultMaxBodyBytes = 10240

// User-visible error messages. Storage errors are reported generically so
// no filesystem detail leaks.
const (
	msgMethodNotAllowed = "Method not allowed."
	msgNotFound         = "Not found."
	msgInvalidRequest   = "Invalid request."
	msgNameRequired     = "Player name is required."
	msgInvalidScore     = "Score must be a whole number between 0 and 999999."
	msgRateLimited      = "Too many requests. Please wait before submitting again."
	msgUnavailable      = "Leaderboard unavailable."
	msgBodyTooLarge     = "Request body too large."
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// MaxBodyBytes caps POST body size; zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Limiter, if non-nil, rate-limits submissions per client address.
	Limiter *ratelimit.Limiter
}

// NewRouter builds an http.Handler exposing the leaderboard API.
// Routes:
//   - GET  {prefix}/leaderboard
//   - POST {prefix}/leaderboard
//   - WS   {prefix}/leaderboard/ws
//   - GET  {prefix}/healthz
func NewRouter(svc *board.Service, hub *realtime.Hub, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	h := &handler{svc: svc, limiter: opts.Limiter, maxBody: opts.MaxBodyBytes}

	r := mux.NewRouter()
	api := r
	if opts.PathPrefix != "" && opts.PathPrefix != "/" {
		api = r.PathPrefix(opts.PathPrefix).Subrouter()
	}
	api.HandleFunc("/leaderboard", h.getLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", h.postLeaderboard).Methods(http.MethodPost)
	if hub != nil {
		api.Handle("/leaderboard/ws", wsadapter.Handler(hub)).Methods(http.MethodGet)
	}
	api.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	// a subrouter swallows its own ErrMethodMismatch, so it needs the
	// handlers too
	r.MethodNotAllowedHandler = methodNotAllowed
	r.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed
	api.NotFoundHandler = notFound

	var handler http.Handler = r
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	handler = withSecurityHeaders(handler)
	return handler
}

type handler struct {
	svc     *board.Service
	limiter *ratelimit.Limiter
	maxBody int64
}

type leaderboardResponse struct {
	Entries []core.Entry `json:"entries"`
}

type submitResponse struct {
	Entries []core.Entry `json:"entries"`
	Saved   core.Entry   `json:"saved"`
}

// submitRequest is the declared POST schema. Score stays raw so the
// validation layer can reject wrong-shaped values itself.
type submitRequest struct {
	Name  *string         `json:"name"`
	Score json.RawMessage `json:"score"`
}

func (h *handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Top(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: orEmpty(entries)})
}

// postLeaderboard runs the submission pipeline. Checks short-circuit: the
// first failing one produces the only error in the response.
func (h *handler) postLeaderboard(w http.ResponseWriter, r *http.Request) {
	// declared-length reject before any read; the stream itself is capped
	// below regardless
	if r.ContentLength > h.maxBody {
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	if h.limiter != nil && !h.limiter.Admit(r.Context(), clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	var req submitRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	saved, entries, err := h.svc.Submit(r.Context(), name, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNameRequired):
			writeError(w, http.StatusBadRequest, msgNameRequired)
		case errors.Is(err, core.ErrInvalidScore):
			writeError(w, http.StatusBadRequest, msgInvalidScore)
		default:
			writeError(w, http.StatusInternalServerError, msgUnavailable)
		}
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{Entries: orEmpty(entries), Saved: saved})
}

// health verifies the service is working properly by probing storage.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{"storage": "ok"},
	}
	code := http.StatusOK
	if _, err := h.svc.Top(r.Context()); err != nil {
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Helpers

func orEmpty(entries []core.Entry) []core.Entry {
	if entries == nil {
		return []core.Entry{}
	}
	return entries
}

// clientKey derives the rate-limit identity from the client address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

// withSecurityHeaders applies the response security posture to every route.
func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
