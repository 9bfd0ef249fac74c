// Package middleware provides the gin middleware chain of the API:
// request metadata, access log, panic recovery, error rendering and auth.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"serviceshop/internal/core/apperror"
	"serviceshop/pkg/logger"
)

// Recovery turns a panic into a rendered 500. It sits inside Logger so the
// access line is still written, and outside ErrorHandler whose post-processing
// a panic skips.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			c.Abort()
			if !c.Writer.Written() {
				renderError(c, apperror.NewInternal(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
