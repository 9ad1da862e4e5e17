package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	quoteTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_transitions_total",
		Help: "Quote status transitions by target status and trigger path.",
	}, []string{"status", "path"})

	tokenRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_token_rate_limited_total",
		Help: "Approval token calls rejected by the rate limiter.",
	}, []string{"op"})

	cfdiJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cfdi_jobs_total",
		Help: "Document issuance job outcomes.", // enqueued, sent, retried, failed
	}, []string{"outcome"})

	cfdiAttemptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cfdi_attempt_duration_seconds",
		Help:    "Duration of one document generation attempt.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

// IncQuoteTransition counts a quote leaving pending.
func IncQuoteTransition(status, path string) {
	quoteTransitions.WithLabelValues(status, path).Inc()
}

// IncTokenRateLimited counts a throttled check or confirm call.
func IncTokenRateLimited(op string) {
	tokenRateLimited.WithLabelValues(op).Inc()
}

// IncCFDIJob counts a job outcome.
func IncCFDIJob(outcome string) {
	cfdiJobs.WithLabelValues(outcome).Inc()
}

// ObserveCFDIAttempt records an attempt duration in seconds.
func ObserveCFDIAttempt(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	cfdiAttemptDuration.Observe(seconds)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
