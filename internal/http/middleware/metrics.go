// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic plus a
// small set of poll-domain counters incremented by the handlers when
// operations succeed. The Metrics() middleware labels by method, registered
// route path, and status code, which keeps cardinality bounded: raw URLs
// like /polls/a1b2c3d4e5f6 collapse into /polls/:id.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// Status is omitted from the latency histogram to keep cardinality low.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Poll lifecycle counters. Confirmed is the number that actually
	// reached a tally; submitted minus confirmed approximates abandoned
	// confirmation emails.
	pollsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "polls_created_total",
		Help: "Total number of polls created.",
	})
	votesSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "votes_submitted_total",
		Help: "Total number of votes submitted (pending confirmation).",
	})
	votesConfirmed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "votes_confirmed_total",
		Help: "Total number of votes confirmed and counted.",
	})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight,
		pollsCreated, votesSubmitted, votesConfirmed)
}

// CountPollCreated increments the poll creation counter.
func CountPollCreated() { pollsCreated.Inc() }

// CountVoteSubmitted increments the pending-vote counter.
func CountVoteSubmitted() { votesSubmitted.Inc() }

// CountVoteConfirmed increments the counted-vote counter.
func CountVoteConfirmed() { votesConfirmed.Inc() }

// Metrics returns a Gin middleware that instruments requests: it tracks
// the in-flight gauge during handler execution, then increments the request
// counter and observes latency with the route path label. When no route
// matched it falls back to the raw URL path.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(c.Request.Method, path, status).Inc()
		httpLat.WithLabelValues(c.Request.Method, path).Observe(dur)
	}
}
