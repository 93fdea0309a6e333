// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, a structured HTTP logger that
// scrubs voter-identifying data from request metadata before it reaches the
// logs. Voter emails travel in request bodies and confirmation tokens in
// query strings, so the access log must never echo either verbatim.
//
// Behavior:
//   - Never logs request or response bodies.
//   - Replaces email addresses and JWT-shaped values in query strings and
//     header values with redaction markers.
//   - Masks the "token" query parameter entirely; a leaked confirmation
//     token is a one-click vote.
//   - Fully masks sensitive headers (Authorization, Cookie, Set-Cookie,
//     plus any configured extras).
package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra HTTP header names whose values are replaced with
// "[REDACTED]". Matching is case-insensitive and merged with the built-in
// sensitive headers.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	redactEmailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+(@|%40)[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Three dot-separated base64url segments, the shape of a signed token.
	redactJWTRE = regexp.MustCompile(`\b[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\b`)
)

// maskedQueryParams are query parameters whose values are always replaced,
// regardless of shape.
var maskedQueryParams = map[string]struct{}{
	"token": {},
}

func redactValue(s string) string {
	if s == "" {
		return s
	}
	out := redactJWTRE.ReplaceAllString(s, "[REDACTED:token]")
	out = redactEmailRE.ReplaceAllString(out, "[REDACTED:email]")
	return out
}

// redactQuery rewrites a raw query string with masked parameters blanked and
// the remaining values scrubbed. A query that fails to parse is scrubbed as
// an opaque string rather than dropped.
func redactQuery(rawQuery string) string {
	if rawQuery == "" {
		return rawQuery
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redactValue(rawQuery)
	}
	parts := make([]string, 0, len(values))
	for k, vv := range values {
		if _, ok := maskedQueryParams[strings.ToLower(k)]; ok {
			parts = append(parts, k+"=[REDACTED]")
			continue
		}
		for _, v := range vv {
			parts = append(parts, k+"="+redactValue(v))
		}
	}
	return strings.Join(parts, "&")
}

// RedactingLogger returns a Gin middleware that logs HTTP requests and
// responses with voter-identifying values scrubbed.
//
// It logs method, route path, scrubbed query string, status, response size,
// latency, and scrubbed request headers, at info level by default, warn for
// 4xx, and error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redactQuery(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			val := strings.Join(vv, ", ")
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redactValue(val)
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		size := c.Writer.Size()

		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", size).
			Dur("latency", latency).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
