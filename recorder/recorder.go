// Package recorder turns domain events (executed queries, errors, HTTP
// requests) into observations.
package recorder

import (
	"context"
	"runtime"
	"strings"

	"github.com/ncobase/lamet/types"
)

// Sink receives observations; *aggregator.Aggregator implements it.
type Sink interface {
	Record(ctx context.Context, obs types.Observation) (string, error)
}

const modulePrefix = "github.com/ncobase/lamet/"

// skipFrame reports whether a frame belongs to the collector, the Go
// runtime or database/sql rather than to application code.
func skipFrame(f runtime.Frame) bool {
	fn := f.Function
	switch {
	case strings.HasPrefix(fn, modulePrefix):
		return !strings.HasSuffix(f.File, "_test.go")
	case strings.HasPrefix(fn, "runtime."),
		strings.HasPrefix(fn, "database/sql."),
		strings.HasPrefix(fn, "testing."),
		strings.HasPrefix(fn, "reflect."):
		return true
	}
	return false
}

// callers returns up to depth frames of application code above the caller,
// or every frame when depth is not positive.
func callers(depth int) []runtime.Frame {
	pc := make([]uintptr, 64)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	var out []runtime.Frame
	for depth <= 0 || len(out) < depth {
		f, more := frames.Next()
		if f.Function != "" && !skipFrame(f) {
			out = append(out, f)
		}
		if !more {
			break
		}
	}
	return out
}

// truncate shortens s to max runes, ending with "...".
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
