// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging with redaction, panic recovery, metrics,
// CORS, security headers, and per-IP rate limiting on the mutating
// endpoints.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/zamapoll/go-poll-backend/internal/config"
	"github.com/zamapoll/go-poll-backend/internal/http/handlers"
	"github.com/zamapoll/go-poll-backend/internal/http/middleware"
	"github.com/zamapoll/go-poll-backend/internal/mail"
	"github.com/zamapoll/go-poll-backend/internal/services"
	"github.com/zamapoll/go-poll-backend/internal/token"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine, builds the service graph from cfg and db, and mounts the
// versioned public API under cfg.APIBasePath.
//
// Middleware order:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs, voter emails and tokens scrubbed
//  4. Recovery: capture panics after logging
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// The rate limiter is attached per-route to POST /polls and
// POST /polls/:id/votes rather than globally: reads stay cheap and
// unmetered, writes are the abuse surface.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, mailer mail.Mailer, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())

	// Poll payloads are small; 64 KiB leaves generous headroom for ten
	// 200-character options.
	r.Use(limitBody(64 << 10))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	installCORS(r, cfg)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/about", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "go-poll-backend",
			"description": "create a poll, share the link, votes confirmed by email",
		})
	})

	// Dependency injection: services ← db, token issuer, mailer.
	pollSvc := services.NewPollService(db)
	pollSvc.PollTTL = cfg.PollTTL

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	voteSvc := &services.VoteService{
		DB:             db,
		Tokens:         token.NewIssuer(cfg.SecretKey, cfg.ConfirmTokenTTL),
		Mailer:         mailer,
		ConfirmBaseURL: cfg.BaseURL + apiBase + "/votes/confirm",
	}

	h := handlers.New(pollSvc, voteSvc, cfg.BaseURL+"/poll")

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())

	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/polls", rl.Handler(), h.CreatePoll)
		api.GET("/polls", h.ListPolls)
		api.GET("/polls/:id", h.GetPoll)
		api.GET("/polls/:id/results", h.GetResults)

		api.POST("/polls/:id/votes", rl.Handler(), h.SubmitVote)
		api.GET("/votes/confirm", h.ConfirmVote)
	}
}

// installCORS applies the CORS posture: allow-all when no origins are
// configured, otherwise an allowlist that echoes the matching Origin.
func installCORS(r *gin.Engine, cfg config.Config) {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Emit ACAO: * even without an Origin header so plain curl and
		// health checks see the permissive posture.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
	for _, o := range cfg.CORS.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	base.AllowOrigins = cfg.CORS.AllowedOrigins
	r.Use(cors.New(base))
}

// limitBody caps the request body size using http.MaxBytesReader; reads
// beyond the cap error downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" or empty as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
