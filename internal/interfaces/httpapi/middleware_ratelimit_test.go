package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimit_RejectsBurstPerClient(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := ClientIP(RateLimit(1, 2, next))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/projections", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, rec.Code)
		}
	}

	rec := send("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 after burst, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	if rec := send("10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("expected another client to keep its own budget, got %d", rec.Code)
	}
}

func TestRateLimit_SkipsHealthAndDisabledConfig(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	limited := RateLimit(1, 1, next)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected health checks to bypass the limiter, got %d", rec.Code)
		}
	}

	disabled := RateLimit(0, 1, next)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sports", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected disabled limiter to pass through, got %d", rec.Code)
		}
	}
}

func TestIPLimiter_EvictsIdleClients(t *testing.T) {
	limiter := newIPLimiter(1, 1)
	now := time.Date(2026, 2, 25, 4, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if ok, _ := limiter.allow("10.0.0.1"); !ok {
		t.Fatalf("expected first request to pass")
	}
	if ok, wait := limiter.allow("10.0.0.1"); ok || wait <= 0 {
		t.Fatalf("expected second request to wait, ok=%v wait=%s", ok, wait)
	}

	now = now.Add(limiterIdleTTL + time.Minute)
	if ok, _ := limiter.allow("10.0.0.9"); !ok {
		t.Fatalf("expected new client to pass")
	}
	if _, exists := limiter.limiters["10.0.0.1"]; exists {
		t.Fatalf("expected idle client to be evicted")
	}
}

func TestResolveClientIP_PrefersProxyHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := resolveClientIP(req); got != "203.0.113.7" {
		t.Fatalf("unexpected client ip: %q", got)
	}

	req.Header.Set("Fly-Client-IP", "198.51.100.4")
	if got := resolveClientIP(req); got != "198.51.100.4" {
		t.Fatalf("unexpected client ip: %q", got)
	}
}

func TestResolveClientIP_FallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::ffff:192.0.2.1]:4000"
	req.Header.Set("X-Real-IP", "not-an-ip")
	if got := resolveClientIP(req); got != "192.0.2.1" {
		t.Fatalf("unexpected client ip: %q", got)
	}

	req.RemoteAddr = "pipe"
	if got := resolveClientIP(req); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
