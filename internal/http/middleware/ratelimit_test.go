package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.POST("/polls", rl.Handler(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3, KeyByIP())
	r := limitedRouter(rl)

	for i := 0; i < 3; i++ {
		w := serve(r, http.MethodPost, "/polls", nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d, want 201", i, w.Code)
		}
	}
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, KeyByIP())
	r := limitedRouter(rl)

	if w := serve(r, http.MethodPost, "/polls", nil); w.Code != http.StatusCreated {
		t.Fatalf("first request: status = %d", w.Code)
	}
	w := serve(r, http.MethodPost, "/polls", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("429 without Retry-After")
	}
	if !strings.Contains(w.Body.String(), "too_many_requests") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRateLimiterKeysByClientIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, KeyByIP())
	r := limitedRouter(rl)

	send := func(ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/polls", nil)
		req.RemoteAddr = ip + ":12345"
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := send("198.51.100.1"); got != http.StatusCreated {
		t.Fatalf("first IP: %d", got)
	}
	if got := send("198.51.100.1"); got != http.StatusTooManyRequests {
		t.Fatalf("first IP repeat: %d, want 429", got)
	}
	// A different IP gets its own bucket.
	if got := send("198.51.100.2"); got != http.StatusCreated {
		t.Fatalf("second IP: %d, want 201", got)
	}
}

func TestRateLimiterCoercesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d, want coerced to 1", rl.burst)
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("ip:198.51.100.9")
	time.Sleep(5 * time.Millisecond)

	// Push the lookup counter past the sweep threshold.
	rl.mu.Lock()
	rl.cleanupN = 4999
	rl.mu.Unlock()
	rl.getVisitor("ip:198.51.100.10")

	rl.mu.Lock()
	_, stale := rl.visitors["ip:198.51.100.9"]
	_, fresh := rl.visitors["ip:198.51.100.10"]
	rl.mu.Unlock()

	if stale {
		t.Fatal("idle bucket survived the sweep")
	}
	if !fresh {
		t.Fatal("fresh bucket missing after sweep")
	}
}
