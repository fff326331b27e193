package handlers

import (
	"context"
	"net/http"
	"time"

	"report-service-go/internal/pkg/circuitbreaker"
	"report-service-go/internal/pkg/enginepool"
	"report-service-go/internal/pkg/logger"
	"report-service-go/internal/pkg/statistics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionPool reports rendering engine session usage.
type SessionPool interface {
	Stats() enginepool.Stats
}

// Breaker reports the state of the engine circuit breaker.
type Breaker interface {
	State() circuitbreaker.State
	IsHealthy() bool
}

// BackendCounter counts persisted generations per backend.
type BackendCounter interface {
	BackendCounts(ctx context.Context, since time.Time) (map[string]uint64, error)
}

// Engine groups the engine-side status sources. Nil fields mean the primary
// renderer is disabled.
type Engine struct {
	Pool    SessionPool
	Breaker Breaker
}

type engineStatus struct {
	Enabled bool              `json:"enabled"`
	Breaker string            `json:"circuit_breaker,omitempty"`
	Healthy bool              `json:"healthy"`
	Pool    *enginepool.Stats `json:"sessions,omitempty"`
}

func (e Engine) status() engineStatus {
	if e.Pool == nil {
		return engineStatus{}
	}
	s := engineStatus{Enabled: true, Healthy: true}
	stats := e.Pool.Stats()
	s.Pool = &stats
	if e.Breaker != nil {
		s.Breaker = e.Breaker.State().String()
		s.Healthy = e.Breaker.IsHealthy()
	}
	return s
}

// StatisticsHandler serves the statistics endpoint.
type StatisticsHandler struct {
	stats  *statistics.Statistics
	engine Engine
	log    BackendCounter
}

// NewStatisticsHandler creates the handler. log may be nil.
func NewStatisticsHandler(stats *statistics.Statistics, engine Engine, log BackendCounter) *StatisticsHandler {
	return &StatisticsHandler{stats: stats, engine: engine, log: log}
}

// GetStatistics returns in-memory aggregates, engine status and, with a
// generation log configured, per-backend counts for the requested period.
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	resp := gin.H{
		"statistics": h.stats.Summary(),
		"engine":     h.engine.status(),
	}

	if h.log != nil {
		period, err := time.ParseDuration(c.DefaultQuery("period", "24h"))
		if err != nil || period <= 0 {
			period = 24 * time.Hour
		}
		counts, err := h.log.BackendCounts(c.Request.Context(), time.Now().Add(-period))
		if err != nil {
			logger.Warn("Failed to read generation log", zap.Error(err))
		} else {
			resp["generation_log"] = gin.H{"period": period.String(), "by_backend": counts}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Health reports liveness. An unhealthy engine only degrades the service,
// since the fallback renderer still produces documents.
func (h *StatisticsHandler) Health(c *gin.Context) {
	engine := h.engine.status()
	status := "healthy"
	if engine.Enabled && !engine.Healthy {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"engine":    engine,
	})
}
