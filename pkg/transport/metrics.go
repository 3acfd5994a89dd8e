package transport

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequests counts handled requests by route and status code.
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "productoptions_http_requests_total",
		Help: "HTTP requests handled by route and status code",
	}, []string{"route", "code"})

	// httpDuration tracks handler latency.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "productoptions_http_request_duration_seconds",
		Help:    "HTTP handler duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"route"})

	// formulaEvaluations counts authoritative formula results.
	formulaEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "productoptions_formula_evaluations_total",
		Help: "Authoritative formula evaluations by outcome (value or none)",
	}, []string{"outcome"})

	// rateLimited counts requests rejected by the per-client limiter.
	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "productoptions_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter",
	})
)

func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
