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

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func TestRouteTTLSelection(t *testing.T) {
	rules := rulesFor(0)
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"order deduction", http.MethodPost, "/api/v1/inventory/deduct", criticalIdempotencyTTL, true},
		{"quantity adjustment", http.MethodPut, "/api/v1/inventory/0f8c2f4e-9a1d-4a5a-bd6f-58f1f2f0c001/quantity", defaultIdempotencyTTL, true},
		{"item create not idempotent", http.MethodPost, "/api/v1/inventory", 0, false},
		{"history read not idempotent", http.MethodGet, "/api/v1/inventory/0f8c2f4e-9a1d-4a5a-bd6f-58f1f2f0c001/transactions", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(rules, tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestRouteTTLHonorsConfiguredAdjustmentWindow(t *testing.T) {
	rules := rulesFor(time.Hour)

	ttl, ok := routeTTL(rules, http.MethodPut, "/api/v1/inventory/0f8c2f4e-9a1d-4a5a-bd6f-58f1f2f0c001/quantity")
	if !ok || ttl != time.Hour {
		t.Fatalf("expected configured 1h ttl, got %v ok=%v", ttl, ok)
	}

	// Deduction keeps its fixed long window regardless of the setting.
	ttl, ok = routeTTL(rules, http.MethodPost, "/api/v1/inventory/deduct")
	if !ok || ttl != criticalIdempotencyTTL {
		t.Fatalf("expected critical ttl, got %v ok=%v", ttl, ok)
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/deduct", strings.NewReader(`{"order_id":"a"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/deduct", strings.NewReader(`{"order_id":"a"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/deduct", strings.NewReader(`{"order_id":"a"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/deduct", strings.NewReader(`{"order_id":"a"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/deduct", strings.NewReader(`{"order_id":"b"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareStoresWithSelectedTTL(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 30*time.Minute, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/inventory/0f8c2f4e-9a1d-4a5a-bd6f-58f1f2f0c001/quantity", strings.NewReader(`{"new_quantity":"2"}`))
	req.Header.Set("Idempotency-Key", "adj-1")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	if len(store.ttls) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.ttls))
	}
	for _, ttl := range store.ttls {
		if ttl != 30*time.Minute {
			t.Fatalf("expected record stored with 30m ttl, got %v", ttl)
		}
	}
}
