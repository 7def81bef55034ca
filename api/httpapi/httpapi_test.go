package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mem "scorekeeper/adapters/memory"
	"scorekeeper/board"
	"scorekeeper/core"
	"scorekeeper/ratelimit"
)

func newTestHandler(opts Options) http.Handler {
	svc := board.New(
		board.WithStorage(mem.New()),
		board.WithDispatchMode(board.DispatchSync),
	)
	if opts.PathPrefix == "" {
		opts.PathPrefix = "/api"
	}
	return NewRouter(svc, nil, opts)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp["error"]
}

func TestGetEmptyLeaderboard(t *testing.T) {
	handler := newTestHandler(Options{})

	rec := doJSON(t, handler, http.MethodGet, "/api/leaderboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"entries":[]}` {
		t.Fatalf("unexpected body: %s", got)
	}
}

func TestSubmitAndGetScenario(t *testing.T) {
	handler := newTestHandler(Options{})

	rec := doJSON(t, handler, http.MethodPost, "/api/leaderboard", `{"name":"Ada#1","score":500}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Entries []core.Entry `json:"entries"`
		Saved   core.Entry   `json:"saved"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Saved.Name != "Ada#1" || created.Saved.Score != 500 {
		t.Fatalf("unexpected saved entry: %+v", created.Saved)
	}
	if created.Saved.SavedAt == "" {
		t.Fatal("saved entry should carry a timestamp")
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/leaderboard", `{"name":"Bo","score":700}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/leaderboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listed struct {
		Entries []core.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Entries) != 2 || listed.Entries[0].Name != "Bo" || listed.Entries[1].Name != "Ada#1" {
		t.Fatalf("expected Bo ranked above Ada#1, got %+v", listed.Entries)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(Options{})

	for _, method := range []string{http.MethodDelete, http.MethodPut, http.MethodPatch} {
		rec := doJSON(t, handler, method, "/api/leaderboard", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", method, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Method not allowed." {
			t.Fatalf("unexpected message: %q", msg)
		}
	}
}

func TestMethodNotAllowedWithoutPrefix(t *testing.T) {
	svc := board.New(
		board.WithStorage(mem.New()),
		board.WithDispatchMode(board.DispatchSync),
	)
	handler := NewRouter(svc, nil, Options{})

	rec := doJSON(t, handler, http.MethodDelete, "/leaderboard", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Method not allowed." {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestMalformedBody(t *testing.T) {
	handler := newTestHandler(Options{})

	for _, body := range []string{"", "not json", "[1,2]", `"text"`, "null", "42"} {
		rec := doJSON(t, handler, http.MethodPost, "/api/leaderboard", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Invalid request." {
			t.Fatalf("body %q: unexpected message %q", body, msg)
		}
	}
}

func TestNameValidation(t *testing.T) {
	handler := newTestHandler(Options{})

	for _, body := range []string{
		`{"score":10}`,
		`{"name":"","score":10}`,
		`{"name":"   ","score":10}`,
		`{"name":"$%^&","score":10}`,
	} {
		rec := doJSON(t, handler, http.MethodPost, "/api/leaderboard", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Player name is required." {
			t.Fatalf("body %q: unexpected message %q", body, msg)
		}
	}
}

func TestScoreValidation(t *testing.T) {
	handler := newTestHandler(Options{})

	reject := []string{
		`{"name":"Ada","score":-1}`,
		`{"name":"Ada","score":1000000}`,
		`{"name":"Ada","score":1.5}`,
		`{"name":"Ada","score":"500"}`,
		`{"name":"Ada"}`,
	}
	for _, body := range reject {
		rec := doJSON(t, handler, http.MethodPost, "/api/leaderboard", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Score must be a whole number between 0 and 999999." {
			t.Fatalf("body %q: unexpected message %q", body, msg)
		}
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/leaderboard", `{"name":"Ada","score":999999}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("max score should be accepted, got %d", rec.Code)
	}
}

func TestBodySizeCap(t *testing.T) {
	handler := newTestHandler(Options{})

	huge := `{"name":"` + strings.Repeat("a", DefaultMaxBodyBytes) + `","score":1}`
	rec := doJSON(t, handler, http.MethodPost, "/api/leaderboard", huge)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(
		ratelimit.NewMemoryStore(),
		ratelimit.DefaultWindow,
		ratelimit.DefaultMaxPerWindow,
		ratelimit.WithClock(func() time.Time { return now }),
	)
	handler := newTestHandler(Options{Limiter: limiter})

	for i := 0; i < ratelimit.DefaultMaxPerWindow; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/leaderboard", `{"name":"Ada","score":1}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d", i+1, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/leaderboard", `{"name":"Ada","score":1}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Too many requests. Please wait before submitting again." {
		t.Fatalf("unexpected message: %q", msg)
	}

	now = now.Add(ratelimit.DefaultWindow + time.Second)
	rec = doJSON(t, handler, http.MethodPost, "/api/leaderboard", `{"name":"Ada","score":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 after window elapsed, got %d", rec.Code)
	}
}

func TestStorageUnavailable(t *testing.T) {
	svc := board.New(
		board.WithStorage(unavailableStorage{}),
		board.WithDispatchMode(board.DispatchSync),
	)
	handler := NewRouter(svc, nil, Options{PathPrefix: "/api"})

	rec := doJSON(t, handler, http.MethodGet, "/api/leaderboard", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Leaderboard unavailable." {
		t.Fatalf("unexpected message: %q", msg)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/leaderboard", `{"name":"Ada","score":1}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestResponseHeaders(t *testing.T) {
	handler := newTestHandler(Options{})

	rec := doJSON(t, handler, http.MethodGet, "/api/leaderboard", "")
	h := rec.Header()
	checks := map[string]string{
		"Content-Type":            "application/json; charset=utf-8",
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
		"Cache-Control":           "no-store",
	}
	for key, want := range checks {
		if got := h.Get(key); got != want {
			t.Fatalf("%s: got %q, want %q", key, got, want)
		}
	}

	// error responses carry the same posture
	rec = doJSON(t, handler, http.MethodDelete, "/api/leaderboard", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("error response missing nosniff: %q", got)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(Options{})

	rec := doJSON(t, handler, http.MethodGet, "/api/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

type unavailableStorage struct{}

func (unavailableStorage) List(context.Context) ([]core.Entry, error) {
	return nil, errors.New("open leaderboard file: permission denied")
}

func (unavailableStorage) Append(context.Context, core.Entry) ([]core.Entry, error) {
	return nil, errors.New("lock leaderboard file: permission denied")
}
