package middleware

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securedRouter(opt SecurityOptions) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders(opt))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestSecurityHeadersBaseline(t *testing.T) {
	w := serve(securedRouter(SecurityOptions{}), http.MethodGet, "/p", nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS emitted without opt-in")
	}
}

func TestSecurityHeadersOptionalPolicies(t *testing.T) {
	w := serve(securedRouter(SecurityOptions{EnablePolicy: true, NoStore: true}), http.MethodGet, "/p", nil)

	if w.Header().Get("Permissions-Policy") == "" {
		t.Fatal("Permissions-Policy missing")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestSecurityHeadersHSTSOnlyOverHTTPS(t *testing.T) {
	r := securedRouter(SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour})

	// Plain HTTP: never advertise HSTS.
	w := serve(r, http.MethodGet, "/p", nil)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS emitted on plain HTTP")
	}

	// Proxy-terminated TLS.
	w = serve(r, http.MethodGet, "/p", map[string]string{"X-Forwarded-Proto": "https"})
	hsts := w.Header().Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=86400") {
		t.Fatalf("HSTS = %q", hsts)
	}
}

func TestSecurityHeadersHSTSMaxAgeDefault(t *testing.T) {
	r := securedRouter(SecurityOptions{EnableHSTS: true})
	w := serve(r, http.MethodGet, "/p", map[string]string{"X-Forwarded-Proto": "https"})

	if got := w.Header().Get("Strict-Transport-Security"); !strings.Contains(got, "max-age=15552000") {
		t.Fatalf("HSTS = %q, want 180-day default", got)
	}
}

func TestSecurityHeadersExposeRequestID(t *testing.T) {
	w := serve(securedRouter(SecurityOptions{}), http.MethodGet, "/p", nil)

	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, requestIDHeader) {
		t.Fatalf("Access-Control-Expose-Headers = %q", got)
	}
}
