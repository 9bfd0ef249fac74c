package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"serviceshop/pkg/logger"
)

// Logger writes one access line per request. Failed requests carry the
// error code rendered by ErrorHandler, server errors are logged at error level.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		l := log.WithContext(c.Request.Context()).With(
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		if code := c.GetString(errorCodeKey); code != "" {
			l = l.With("error_code", code)
		}

		switch {
		case status >= 500:
			l.Errorw("http request", "error", c.Errors.String())
		case status >= 400:
			l.Warnw("http request")
		default:
			l.Infow("http request")
		}
	}
}
