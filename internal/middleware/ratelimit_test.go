package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvanbeek/boodschap/internal/auth"
)

func TestAllowWithinLimit(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 5; i++ {
		if !rl.Allow("key", 5, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("key", 5, time.Minute) {
		t.Error("sixth request should be denied")
	}
}

func TestAllowSeparateKeys(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("a", 1, time.Minute)
	if !rl.Allow("b", 1, time.Minute) {
		t.Error("keys must not share budgets")
	}
}

func TestAllowWindowExpiry(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("key", 1, 10*time.Millisecond) {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("key", 1, 10*time.Millisecond) {
		t.Fatal("second request inside window should be denied")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("key", 1, 10*time.Millisecond) {
		t.Error("request after window expiry should be allowed")
	}
}

func TestCleanup(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("stale", 1, time.Nanosecond)
	rl.Allow("fresh", 1, time.Minute)

	time.Sleep(time.Millisecond)
	rl.Cleanup()

	if _, ok := rl.entries["stale"]; ok {
		t.Error("expired entry should be removed")
	}
	if _, ok := rl.entries["fresh"]; !ok {
		t.Error("live entry should survive cleanup")
	}
}

func TestLimitByIP(t *testing.T) {
	rl := NewRateLimiter()
	handler := LimitByIP(rl, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}

	// A different client is unaffected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

func TestCooldownByUser(t *testing.T) {
	rl := NewRateLimiter()
	handler := CooldownByUser(rl, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	request := func(userID int64) int {
		req := httptest.NewRequest(http.MethodPost, "/api/rounds/1/requests", nil)
		ctx := auth.WithAuth(context.Background(), auth.AuthContext{UserID: userID})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code
	}

	if code := request(1); code != http.StatusCreated {
		t.Fatalf("first request: status = %d, want 201", code)
	}
	if code := request(1); code != http.StatusTooManyRequests {
		t.Errorf("second request inside cooldown: status = %d, want 429", code)
	}
	// Another user has their own cooldown.
	if code := request(2); code != http.StatusCreated {
		t.Errorf("other user: status = %d, want 201", code)
	}
}
