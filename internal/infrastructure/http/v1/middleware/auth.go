package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"serviceshop/internal/core/apperror"
	appctx "serviceshop/internal/core/context"
	"serviceshop/pkg/logger"
)

// TokenVerifier turns a raw bearer token into the caller identity.
type TokenVerifier interface {
	Verify(raw string) (*appctx.UserContext, error)
}

// Auth rejects requests without a valid bearer token and attaches the caller
// to the request context.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			deny(c, apperror.NewUnauthorized("bearer token required"))
			return
		}

		user, err := tokens.Verify(raw)
		if err != nil {
			logger.Debug(c.Request.Context(), "token rejected", "error", err)
			deny(c, apperror.NewUnauthorized("invalid or expired token"))
			return
		}

		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// RequireRole lets through callers holding one of roles. Admin passes every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		switch {
		case user == nil:
			deny(c, apperror.NewUnauthorized("bearer token required"))
		case !user.Allowed(roles...):
			deny(c, apperror.NewForbidden("role "+user.Role+" may not perform this operation").
				WithDetail("requiredRoles", roles))
		default:
			c.Next()
		}
	}
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func deny(c *gin.Context, err *apperror.AppError) {
	_ = c.Error(err)
	c.Abort()
}
