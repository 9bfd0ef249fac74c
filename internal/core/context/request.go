package context

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// RequestMeta identifies the API call a ledger mutation belongs to.
// It ends up in log lines and in sys_audit rows.
type RequestMeta struct {
	RequestID string
	TraceID   string
	ClientIP  string
}

type requestMetaKey struct{}

// WithRequest stores RequestMeta in ctx.
func WithRequest(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// GetRequest returns RequestMeta from ctx, or nil outside an API call.
func GetRequest(ctx context.Context) *RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(*RequestMeta); ok {
		return v
	}
	return nil
}

// RequestID returns the request id or "".
func RequestID(ctx context.Context) string {
	if m := GetRequest(ctx); m != nil {
		return m.RequestID
	}
	return ""
}

// TraceID prefers the active span's trace id over the inbound header value.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if m := GetRequest(ctx); m != nil {
		return m.TraceID
	}
	return ""
}
