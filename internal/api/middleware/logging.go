package middleware

import (
	"time"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		// Log format: [method] path?query - status (latency)
		if raw != "" {
			path = path + "?" + raw
		}

		// Upgraded websocket requests are logged by the transport when the
		// connection ends; the access line is only useful at debug level.
		if c.IsWebsocket() {
			logger.Debugf("[HTTP] [%s] %s - websocket (%v)", c.Request.Method, path, latency)
			return
		}
		logger.Infof("[HTTP] [%s] %s - %d (%v)", c.Request.Method, path, statusCode, latency)
	}
}
