package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"gopherai-notebook/internal/logger"
)

// RequestLog writes one structured line per request.
func RequestLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		details := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			details["errors"] = c.Errors.String()
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("gateway", "request failed", details)
		case c.Writer.Status() >= 400:
			log.Warn("gateway", "request rejected", details)
		default:
			log.Debug("gateway", "request served", details)
		}
	}
}
