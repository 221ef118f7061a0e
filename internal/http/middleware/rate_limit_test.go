package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestLocalLimiterBlocksAfterLimit(t *testing.T) {
	l := NewLocalLimiter(2, time.Minute)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	h := NewRateLimiter(l, RateLimitConfig{}).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected other client to pass, got %d", rr.Code)
	}

	// tokens refill over time
	clock = clock.Add(time.Minute)
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected refill, got %d", rr.Code)
	}
}

func TestRateLimiterFailsOpenAndSkips(t *testing.T) {
	h := NewRateLimiter(brokenLimiter{}, RateLimitConfig{SkipFunc: OnlyPost}).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", method, rr.Code)
		}
	}
}

func TestClientIPKeyIgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	l := NewLocalLimiter(1, time.Minute)
	h := NewRateLimiter(l, RateLimitConfig{KeyFunc: ClientIPKey([]string{"10.1.0.0/16"})}).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", spoofed)
		req.Header.Set("X-Real-IP", spoofed)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected rotating headers to share one bucket, got %v", codes)
	}
}

func TestClientIPKeyHonorsTrustedProxy(t *testing.T) {
	key := ClientIPKey([]string{"10.1.0.0/16", "bogus"})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := key(req); len(got) != 1 || got[0] != "ip:203.0.113.9" {
		t.Fatalf("expected forwarded client, got %v", got)
	}

	// a client-written entry left of the real hop is ignored
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 203.0.113.9, 10.1.9.9")
	if got := key(req); len(got) != 1 || got[0] != "ip:203.0.113.9" {
		t.Fatalf("expected nearest untrusted hop, got %v", got)
	}

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.10")
	if got := key(req); len(got) != 1 || got[0] != "ip:203.0.113.10" {
		t.Fatalf("expected X-Real-IP, got %v", got)
	}
}

func TestClientIPKeyWithoutProxiesUsesPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	if got := ClientIPKey(nil)(req); len(got) != 1 || got[0] != "ip:198.51.100.7" {
		t.Fatalf("expected peer address, got %v", got)
	}
}
