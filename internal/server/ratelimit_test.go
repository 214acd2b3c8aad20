package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/54b3r/docchat-go/internal/logging"
)

// okHandler is the terminal handler used by middleware tests.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// newTestLimiter returns a limiter with a controllable clock.
func newTestLimiter(t *testing.T, rps float64, burst int) (*rateLimiter, *time.Time) {
	t.Helper()
	rl, stop := newRateLimiter(rps, burst, logging.Discard())
	t.Cleanup(stop)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func chatFrom(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 3)
	h := rl.middleware(okHandler)

	for i := range 3 {
		if w := chatFrom(h, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i+1, w.Code)
		}
	}
	w := chatFrom(h, "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("request 4: status %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
}

func TestRateLimit_RetryAfterReflectsRefillRate(t *testing.T) {
	t.Parallel()
	// One token every 4 seconds.
	rl, _ := newTestLimiter(t, 0.25, 1)
	h := rl.middleware(okHandler)

	chatFrom(h, "10.0.0.2:1")
	w := chatFrom(h, "10.0.0.2:1")
	if got := w.Header().Get("Retry-After"); got != "4" {
		t.Errorf("Retry-After = %q, want 4", got)
	}
}

func TestRateLimit_RejectionDoesNotConsumeTokens(t *testing.T) {
	t.Parallel()
	rl, now := newTestLimiter(t, 1, 1)
	h := rl.middleware(okHandler)

	chatFrom(h, "10.0.0.3:1")
	for range 5 {
		chatFrom(h, "10.0.0.3:1")
	}
	*now = now.Add(time.Second)
	if w := chatFrom(h, "10.0.0.3:1"); w.Code != http.StatusOK {
		t.Errorf("status after refill = %d, want 200", w.Code)
	}
}

func TestRateLimit_ClientsAreIsolated(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 1)
	h := rl.middleware(okHandler)

	chatFrom(h, "10.0.0.4:1")
	if w := chatFrom(h, "10.0.0.4:2"); w.Code != http.StatusTooManyRequests {
		t.Errorf("same IP, other port: status %d, want 429", w.Code)
	}
	if w := chatFrom(h, "10.0.0.5:1"); w.Code != http.StatusOK {
		t.Errorf("other IP: status %d, want 200", w.Code)
	}
}

func TestRateLimit_SweepDropsIdleClients(t *testing.T) {
	t.Parallel()
	rl, now := newTestLimiter(t, 1, 1)
	rl.reserve("10.0.0.6")
	rl.reserve("10.0.0.7")

	*now = now.Add(clientIdleTTL / 2)
	rl.reserve("10.0.0.7")
	*now = now.Add(clientIdleTTL/2 + time.Second)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.buckets["10.0.0.6"]; ok {
		t.Error("idle client not swept")
	}
	if _, ok := rl.buckets["10.0.0.7"]; !ok {
		t.Error("active client swept")
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"127.0.0.1:54321":   "127.0.0.1",
		"[2001:db8::1]:443": "2001:db8::1",
		"::1:8080":          "::1",
		"noport":            "noport",
	}
	for remoteAddr, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		if got := clientIP(req); got != want {
			t.Errorf("clientIP(%q) = %q, want %q", remoteAddr, got, want)
		}
	}
}
