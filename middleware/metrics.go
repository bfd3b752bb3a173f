package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes recorded by RecordSubmission.
const (
	OutcomeAccepted      = "accepted"
	OutcomeRateLimited   = "rate_limited"
	OutcomeInvalid       = "invalid"
	OutcomeSpam          = "spam"
	OutcomeInappropriate = "inappropriate"
	OutcomeChallenge     = "challenge_failed"
	OutcomeFileRejected  = "file_rejected"
	OutcomeNotFound      = "not_found"
	OutcomeConflict      = "conflict"
	OutcomeError         = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Inbound form submissions by form type and pipeline outcome",
		},
		[]string{"form", "outcome"},
	)
)

// PrometheusMetrics records request count and latency per matched route.
func PrometheusMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordSubmission counts one pipeline outcome for form.
func RecordSubmission(form, outcome string) {
	submissionsTotal.WithLabelValues(form, outcome).Inc()
}
