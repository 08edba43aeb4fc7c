package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goalpost/feedsync/internal/logger"
	"github.com/google/uuid"
)

// Logger returns a Gin middleware that injects a request-scoped logger
// carrying a generated request ID, and logs request completion.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := uuid.New().String()

		ctx := c.Request.Context()
		ctx = log.WithFields(logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		}).WithContext(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}

		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldStatus:     c.Writer.Status(),
			logger.FieldDurationMs: latency.Milliseconds(),
			"method":               c.Request.Method,
			"path":                 fullPath,
			"client_ip":            c.ClientIP(),
		}).Info("Request completed")
	}
}

// GetLogger extracts the request-scoped logger from the request context.
func GetLogger(c *gin.Context) *logger.Logger {
	return logger.FromContext(c.Request.Context())
}
