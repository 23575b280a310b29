// Package ctxutil carries request-scoped values used by the metrics pipeline.
//
// The request path stored here is what path ignore rules are evaluated
// against; the HTTP middleware in package recorder sets it for every request:
//
//	ctx = ctxutil.SetRequestPath(ctx, "/api/health")
//	path, ok := ctxutil.GetRequestPath(ctx)
//
// Trace ids are attached to every log entry emitted through logging/logger.
package ctxutil
