package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// GenerationTotal counts finished generations by the backend that produced
	// the buffer ("primary", "fallback" or "none") and status.
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_generation_total",
			Help: "Total number of report generations",
		},
		[]string{"backend", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_generation_duration_seconds",
			Help:    "Duration of report generation in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"backend"},
	)

	// FallbackTotal counts hops from the primary to the fallback renderer.
	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_fallback_total",
			Help: "Total number of fallbacks from the primary renderer",
		},
		[]string{"reason"},
	)

	FileSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_file_size_bytes",
			Help:    "Size of generated PDF files in bytes",
			Buckets: []float64{10 * 1024, 50 * 1024, 100 * 1024, 500 * 1024, 1024 * 1024, 5 * 1024 * 1024},
		},
		[]string{"backend"},
	)

	// EngineRequestsTotal counts rendering engine calls by outcome.
	EngineRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_engine_requests_total",
			Help: "Total number of requests to the rendering engine",
		},
		[]string{"status"},
	)

	EngineRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "render_engine_request_duration_seconds",
			Help:    "Duration of rendering engine requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// EngineSessions tracks engine sessions by state (active, idle).
	EngineSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "render_engine_sessions",
			Help: "Number of rendering engine sessions by state",
		},
		[]string{"state"},
	)

	EngineSessionWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_engine_session_wait_seconds",
			Help:    "Time spent waiting for a free rendering engine session",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	EngineSessionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_engine_session_errors_total",
			Help: "Total number of rendering engine session errors",
		},
		[]string{"type"},
	)

	ArtifactWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_artifact_writes_total",
			Help: "Total number of stored report artifacts",
		},
		[]string{"store", "status"},
	)
)
