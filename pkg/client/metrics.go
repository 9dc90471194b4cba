package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for upstream requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xref_upstream_requests_total",
		Help: "Total upstream request attempts by endpoint and status",
	}, []string{"endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xref_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint, retries and backoff included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xref_upstream_errors_total",
		Help: "Total failed upstream attempts by class",
	}, []string{"class"})

	upstreamRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xref_upstream_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	upstreamRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xref_upstream_retry_backoff_seconds",
		Help:    "Backoff duration before a retry by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	upstreamRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xref_upstream_retry_exhausted_total",
		Help: "Total number of requests that failed on their last allowed attempt by error class",
	}, []string{"error_class"})
)
