package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
)

// AccessLog logs one line per request.
func AccessLog(logger *logging.LoggerV2) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logging.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"request_id":  RequestIDFromContext(c.Request.Context()),
		}
		if uid := UserID(c); uid != "" {
			fields["user_id"] = uid
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("HTTP request", fields)
		case status >= 400:
			logger.Warn("HTTP request", fields)
		default:
			logger.Info("HTTP request", fields)
		}
	}
}
