package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alsalam/hospital-api/pkg/logger"
)

// RequestLogger emits one structured entry per request. Server errors log at
// error level, client errors at warn.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"request_id": GetRequestID(c),
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"size":       c.Writer.Size(),
		}

		var lastErr error
		if last := c.Errors.Last(); last != nil {
			lastErr = last.Err
		}

		entry := log.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error(lastErr, "request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}
