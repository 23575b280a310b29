package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestPathKey contextKey = "request_path"
	traceIDKey     contextKey = "trace_id"

	// TraceIDKey is the log field trace ids are written under.
	TraceIDKey = string(traceIDKey)
)

// SetRequestPath records the path of the request being served. Path ignore
// rules are evaluated against it.
func SetRequestPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, requestPathKey, path)
}

// GetRequestPath returns the request path, ok is false outside a request.
func GetRequestPath(ctx context.Context) (string, bool) {
	path, ok := ctx.Value(requestPathKey).(string)
	return path, ok
}

// GetTraceID returns the trace id, or "" when none is set.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// EnsureTraceID returns ctx unchanged when it already has a trace id,
// otherwise a child carrying a new one.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if id := GetTraceID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return SetTraceID(ctx, id), id
}
