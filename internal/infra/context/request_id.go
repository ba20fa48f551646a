package context

import (
	"context"
)

const contextKeyRequestID = contextKey("requestID")

// RequestIDFromContext returns the request ID attached by the HTTP transport.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKeyRequestID).(string)

	return id, ok && id != ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}
