package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextTraceKey ctxKey = "traceID"

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(ContextTraceKey).(string); ok {
		return traceID
	}
	return ""
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ContextTraceKey, traceID)
}

// DefaultOperationTimeout bounds a single store operation when no deadline is configured.
const DefaultOperationTimeout = 5 * time.Second

// WithTimeout returns a context with timeout, defaulting to DefaultOperationTimeout if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if duration <= 0 {
		duration = DefaultOperationTimeout
	}
	return context.WithTimeout(ctx, duration)
}
