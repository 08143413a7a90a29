package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type counterStore struct {
	counts map[string]int64
}

func (c *counterStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func TestRateLimitBlocksAfterLimitPerUser(t *testing.T) {
	store := &counterStore{counts: map[string]int64{}}
	handler := RateLimit(NewRateLimitPolicy("payments", time.Minute, 2), store, nil)(okHandler())

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", nil)
		req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: userID}))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := send("u1"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := send("u1"); code != http.StatusOK {
		t.Fatalf("second request: %d", code)
	}
	if code := send("u1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", code)
	}
	blocked := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", nil)
	blocked = blocked.WithContext(WithPrincipal(blocked.Context(), Principal{UserID: "u1"}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, blocked)
	if resp.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60 got %q", resp.Header().Get("Retry-After"))
	}
	if code := send("u2"); code != http.StatusOK {
		t.Fatalf("other user should not be throttled, got %d", code)
	}
	if _, ok := store.counts["payments:user:u1"]; !ok {
		t.Fatalf("expected per-user key, got %v", store.counts)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := &counterStore{counts: map[string]int64{}}
	handler := RateLimit(NewRateLimitPolicy("payments", 0, 0), store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || len(store.counts) != 0 {
		t.Fatalf("disabled policy should not count requests")
	}
}

type observation struct {
	route, method string
	status        int
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) Observe(route, method string, status int, _ time.Duration) {
	r.seen = append(r.seen, observation{route, method, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	observer := &recordingObserver{}
	handler := Metrics(observer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := requestWithPattern(http.MethodPost, "/api/v1/orders", "/api/v1/orders", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(observer.seen) != 1 {
		t.Fatalf("expected one observation, got %d", len(observer.seen))
	}
	if got := observer.seen[0]; got != (observation{"/api/v1/orders", http.MethodPost, http.StatusCreated}) {
		t.Fatalf("unexpected observation %+v", got)
	}
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestMetricsCollapsesUnmatchedPaths(t *testing.T) {
	observer := &recordingObserver{}
	handler := Metrics(observer)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/setup.php", nil))
	if observer.seen[0].route != "unmatched" {
		t.Fatalf("expected unmatched label got %s", observer.seen[0].route)
	}
}
