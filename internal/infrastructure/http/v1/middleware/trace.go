package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "serviceshop/internal/core/context"
	"serviceshop/internal/core/id"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// maxInboundIDLen bounds client-supplied ids before they reach logs and sys_audit.
const maxInboundIDLen = 100

// Trace attaches RequestMeta to the request context and echoes the ids back.
// Missing or oversized inbound ids are replaced with fresh UUIDv7 values.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := &appctx.RequestMeta{
			RequestID: inboundID(c.GetHeader(HeaderRequestID)),
			TraceID:   inboundID(c.GetHeader(HeaderTraceID)),
			ClientIP:  c.ClientIP(),
		}

		c.Request = c.Request.WithContext(appctx.WithRequest(c.Request.Context(), meta))

		c.Header(HeaderRequestID, meta.RequestID)
		c.Header(HeaderTraceID, meta.TraceID)

		c.Next()
	}
}

func inboundID(v string) string {
	if v == "" || len(v) > maxInboundIDLen {
		return id.New().String()
	}
	return v
}
