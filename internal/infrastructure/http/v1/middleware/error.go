package middleware

import (
	"github.com/gin-gonic/gin"

	"serviceshop/internal/core/apperror"
	appctx "serviceshop/internal/core/context"
	"serviceshop/pkg/logger"
)

// errorCodeKey holds the rendered error code for the access log.
const errorCodeKey = "error_code"

// ErrorHandler renders the last handler error as {code, message, details}.
// Causes of internal errors are logged, never sent to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := apperror.AsAppError(err)
		if !ok {
			appErr = apperror.NewInternal(err)
		}
		renderError(c, appErr)
	}
}

func renderError(c *gin.Context, appErr *apperror.AppError) {
	ctx := c.Request.Context()

	details := appErr.Details
	if appErr.Kind() == apperror.KindInternal {
		logger.Error(ctx, "request failed", "cause", appErr.Err)
		details = map[string]any{"requestId": appctx.RequestID(ctx)}
	} else if appErr.Err != nil {
		logger.Warn(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
	}

	c.Set(errorCodeKey, appErr.Code)
	c.JSON(appErr.HTTPStatus, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": details,
	})
}
