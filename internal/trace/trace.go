// Package trace propagates the per-request trace context described in
// section 4.7: a trace id, span id, and optional user/request ids carried
// ambiently through a request's context.Context rather than threaded
// explicitly through every call.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// Context is the per-request record attached to every log line and echoed
// on every response.
type Context struct {
	TraceID   string
	SpanID    string
	UserID    string
	RequestID string
}

type ctxKey struct{}

// New mints a fresh trace context, generating a trace id when one was not
// supplied by an inbound X-Trace-ID header.
func New(inboundTraceID, userID, requestID string) Context {
	traceID := inboundTraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return Context{
		TraceID:   traceID,
		SpanID:    uuid.New().String(),
		UserID:    userID,
		RequestID: requestID,
	}
}

// WithContext returns a child context.Context carrying tc.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext recovers the trace context attached by WithContext, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// IDFromContext is a convenience accessor for the common case of needing
// only the trace id, defaulting to "" when no trace context is attached.
func IDFromContext(ctx context.Context) string {
	tc, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return tc.TraceID
}
