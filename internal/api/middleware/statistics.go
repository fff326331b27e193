package middleware

import (
	"net/http"
	"strings"
	"time"

	"report-service-go/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestTracker receives the outcome of generation requests.
type RequestTracker interface {
	TrackRequest(duration time.Duration, success bool)
}

// StatisticsMiddleware tracks POST requests under prefix, which are the
// generation endpoints.
func StatisticsMiddleware(tracker RequestTracker, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || !strings.HasPrefix(c.Request.URL.Path, prefix) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		success := status >= 200 && status < 400

		logger.Debug("Request statistics",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Bool("success", success),
			zap.Duration("duration", duration),
		)
		tracker.TrackRequest(duration, success)
	}
}
