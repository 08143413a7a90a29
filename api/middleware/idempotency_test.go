package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/redis"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	return true, f.Set(ctx, key, value, ttl)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

var placeOrder = IdempotencyPolicy{Operation: "place-order", TTL: LongReplayWindow}

func orderRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: "user-1"}))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

func TestIdempotentRequiresHeader(t *testing.T) {
	handler := Idempotent(placeOrder, newFakeStore(), nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest("", `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(strings.Repeat("k", maxKeyLen+1), `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized key got %d", rec.Code)
	}
}

func TestIdempotentReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotent(placeOrder, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order_number":"ORD-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest("abc", `{"payment_method":"cod"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	again := httptest.NewRecorder()
	handler.ServeHTTP(again, orderRequest("abc", `{"payment_method":"cod"}`))
	if again.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", again.Code)
	}
	if again.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if again.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type preserved")
	}
	if !strings.Contains(again.Body.String(), "ORD-1") {
		t.Fatalf("expected stored body got %s", again.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	for _, ttl := range store.ttls {
		if ttl != LongReplayWindow {
			t.Fatalf("expected record ttl %s got %s", LongReplayWindow, ttl)
		}
	}
}

func TestIdempotentRejectsBodyChange(t *testing.T) {
	handler := Idempotent(placeOrder, newFakeStore(), nil)(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest("xyz", `{"coupon":"SAVE10"}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest("xyz", `{"coupon":"SAVE20"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, code)
	}
}

func TestIdempotentRejectsWhileInFlight(t *testing.T) {
	store := newFakeStore()
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = Idempotent(placeOrder, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = httptest.NewRecorder()
		handler.ServeHTTP(inner, orderRequest("dup", `{}`))
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest("dup", `{}`))
	if inner == nil || inner.Code != http.StatusConflict {
		t.Fatalf("expected concurrent duplicate to get 409")
	}
}

func TestIdempotentReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	fail := true
	handler := Idempotent(placeOrder, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest("retry", `{}`))
	if rec.Code != http.StatusBadGateway || len(store.data) != 0 {
		t.Fatalf("expected key released after 502, store=%v", store.data)
	}

	fail = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest("retry", `{}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected retry to run handler, got %d", rec.Code)
	}
}

func TestIdempotentScopesKeysPerUser(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotent(placeOrder, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest("same", `{}`))
	other := orderRequest("same", `{}`)
	other = other.WithContext(WithPrincipal(other.Context(), Principal{UserID: "user-2"}))
	handler.ServeHTTP(httptest.NewRecorder(), other)
	if calls != 2 {
		t.Fatalf("expected separate users to both execute, calls=%d", calls)
	}
}
