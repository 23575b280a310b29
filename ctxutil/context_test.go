package ctxutil

import (
	"context"
	"testing"
)

func TestRequestPath(t *testing.T) {
	ctx := context.Background()
	if _, ok := GetRequestPath(ctx); ok {
		t.Fatalf("expected no request path on a bare context")
	}

	ctx = SetRequestPath(ctx, "/api/health")
	path, ok := GetRequestPath(ctx)
	if !ok || path != "/api/health" {
		t.Errorf("GetRequestPath() = %q, %v; want %q, true", path, ok, "/api/health")
	}
}

func TestEnsureTraceID(t *testing.T) {
	ctx, id := EnsureTraceID(context.Background())
	if id == "" {
		t.Fatalf("expected a generated trace id")
	}

	_, again := EnsureTraceID(ctx)
	if again != id {
		t.Errorf("EnsureTraceID() = %q, want existing %q", again, id)
	}
}
