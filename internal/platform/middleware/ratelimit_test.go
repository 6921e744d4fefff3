package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// fakeClock is advanced by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func limitedEcho(cfg RateLimitConfig, clock *fakeClock) *echo.Echo {
	e := echo.New()
	e.Use(rateLimit(cfg, clock.Now))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/api/doctors", ok)
	e.POST("/api/auth/login", ok)
	return e
}

func hit(e *echo.Echo, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(echo.HeaderXRealIP, ip)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_BurstThenRefill(t *testing.T) {
	clock := newFakeClock()
	e := limitedEcho(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3}, clock)

	for i := 0; i < 3; i++ {
		rec := hit(e, http.MethodGet, "/api/doctors", "10.0.0.1")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "1" {
			t.Errorf("X-RateLimit-Limit: got %q", got)
		}
	}

	rec := hit(e, http.MethodGet, "/api/doctors", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After: got %q, want 1", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining: got %q", got)
	}

	clock.Advance(time.Second)
	if rec := hit(e, http.MethodGet, "/api/doctors", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Errorf("expected a refilled token after 1s, got %d", rec.Code)
	}
}

func TestRateLimit_ClientsAreIsolated(t *testing.T) {
	clock := newFakeClock()
	e := limitedEcho(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}, clock)

	if rec := hit(e, http.MethodGet, "/api/doctors", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first client: got %d", rec.Code)
	}
	if rec := hit(e, http.MethodGet, "/api/doctors", "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first client again: got %d", rec.Code)
	}
	if rec := hit(e, http.MethodGet, "/api/doctors", "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("second client should have its own bucket, got %d", rec.Code)
	}
}

func TestRateLimit_SkipperAndKeyFunc(t *testing.T) {
	clock := newFakeClock()
	cfg := CredentialRateLimitConfig()
	cfg.BurstSize = 1
	cfg.Skipper = func(c echo.Context) bool { return c.Path() != "/api/auth/login" }
	cfg.KeyFunc = func(c echo.Context) string { return "everyone" }
	e := limitedEcho(cfg, clock)

	for i := 0; i < 5; i++ {
		if rec := hit(e, http.MethodGet, "/api/doctors", "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("skipped route limited: got %d", rec.Code)
		}
	}
	if rec := hit(e, http.MethodPost, "/api/auth/login", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first login: got %d", rec.Code)
	}
	rec := hit(e, http.MethodPost, "/api/auth/login", "10.0.0.2")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("shared key should be exhausted, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After at 0.5 rps: got %q, want 2", got)
	}
}

func TestLimiter_ZeroRateRetriesInOneSecond(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(RateLimitConfig{BurstSize: 1}, clock.Now)

	if ok, _ := l.take("k"); !ok {
		t.Fatal("expected the burst token")
	}
	ok, retry := l.take("k")
	if ok || retry != 1 {
		t.Errorf("take = %v, %d; want false, 1", ok, retry)
	}
}

func TestLimiter_SweepsIdleBuckets(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5, IdleTTL: time.Minute}, clock.Now)

	l.take("stale")
	clock.Advance(2 * time.Minute)
	l.take("fresh")

	if l.size() != 1 {
		t.Errorf("expected the stale bucket to be evicted, have %d", l.size())
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 || cfg.IdleTTL != 10*time.Minute {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
