package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of attempts made by retried operations",
		},
		[]string{"operation", "status"},
	)

	retryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_errors_total",
			Help: "Total number of failed attempts by error class",
		},
		[]string{"operation", "error_type"},
	)

	retryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retry_duration_seconds",
			Help:    "Total time spent in retried operations, backoff included",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"operation", "status"},
	)
)
