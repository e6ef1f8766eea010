package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"go-push-notification/internal/infrastructure/logger"
)

// RequestLogger logs one line per request through the application logger
// instead of gin's default writer.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	log = log.WithField("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logger.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			log.WithFields(fields).Warn(c.Errors.String())
			return
		}
		log.WithFields(fields).Debug("request")
	}
}
