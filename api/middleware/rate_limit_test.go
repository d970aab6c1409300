package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type counterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newCounterStore() *counterStore {
	return &counterStore{counts: make(map[string]int64)}
}

func (c *counterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestUserRateLimitBlocksAfterLimit(t *testing.T) {
	store := newCounterStore()
	handler := UserRateLimit(NewRateLimitPolicy("bids", time.Minute, 2), store, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/x/bids", nil)
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected first two requests allowed, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request throttled, got %d", codes[2])
	}
}

func TestUserRateLimitCountsUsersSeparately(t *testing.T) {
	store := newCounterStore()
	handler := UserRateLimit(NewRateLimitPolicy("bids", time.Minute, 1), store, nil)(okHandler())

	for _, user := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("user %s: expected 200 got %d", user, resp.Code)
		}
	}
	if _, ok := store.counts["rl:user:bids:a"]; !ok {
		t.Fatalf("expected per-user key, got %v", store.counts)
	}
}

func TestUserRateLimitFallsBackToClientIP(t *testing.T) {
	store := newCounterStore()
	handler := UserRateLimit(NewRateLimitPolicy("bids", time.Minute, 5), store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if store.counts["rl:ip:bids:203.0.113.7"] != 1 {
		t.Fatalf("expected ip key counted, got %v", store.counts)
	}
}

func TestUserRateLimitStoreFailure(t *testing.T) {
	store := newCounterStore()
	store.err = errors.New("redis down")
	handler := UserRateLimit(NewRateLimitPolicy("bids", time.Minute, 5), store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestUserRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := UserRateLimit(NewRateLimitPolicy("bids", 0, 0), nil, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", resp.Code)
	}
}
