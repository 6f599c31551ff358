package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllowUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)

	key := "10.0.0.1"
	allowedCount := 0
	for i := 0; i < 8; i++ {
		if allowed, _, _ := limiter.Allow(key); allowed {
			allowedCount++
		}
	}

	if allowedCount != 5 {
		t.Errorf("allowed %d requests, want 5", allowedCount)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	limiter := NewRateLimiter(2, 50*time.Millisecond)

	key := "10.0.0.2"
	limiter.Allow(key)
	limiter.Allow(key)
	if allowed, _, _ := limiter.Allow(key); allowed {
		t.Fatal("third request within window should be denied")
	}

	time.Sleep(60 * time.Millisecond)
	if allowed, _, _ := limiter.Allow(key); !allowed {
		t.Fatal("request after window elapsed should be allowed")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	if allowed, _, _ := limiter.Allow("a"); !allowed {
		t.Fatal("first request for key a should pass")
	}
	if allowed, _, _ := limiter.Allow("b"); !allowed {
		t.Fatal("first request for key b should pass")
	}
	if allowed, _, _ := limiter.Allow("a"); allowed {
		t.Fatal("second request for key a should be denied")
	}
}

func TestRateLimitHandler(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.9:52000"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on 4th request, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected 0 remaining, got %q", last.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimiterStartCleanupReclaimsStaleWindows(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter.StartCleanup(ctx)

	for i := 0; i < 50; i++ {
		limiter.Allow(fmt.Sprintf("10.1.0.%d", i))
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		limiter.mu.Lock()
		n := len(limiter.windows)
		limiter.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	limiter.mu.Lock()
	n := len(limiter.windows)
	limiter.mu.Unlock()
	t.Fatalf("%d stale windows still held after expiry", n)
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)
	limiter.Allow("stale")
	time.Sleep(20 * time.Millisecond)
	limiter.Cleanup()

	limiter.mu.Lock()
	_, exists := limiter.windows["stale"]
	limiter.mu.Unlock()
	if exists {
		t.Fatal("elapsed window should have been cleaned up")
	}
}
