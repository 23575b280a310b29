package recorder

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/ignore"
	"github.com/ncobase/lamet/telemetry"
	"github.com/ncobase/lamet/types"
)

// Coder is implemented by errors carrying a numeric code.
type Coder interface {
	Code() int
}

// ExceptionRecorder counts errors.
type ExceptionRecorder struct {
	cfg    *config.Exception
	filter *ignore.Filter
	sink   Sink
	tel    *telemetry.Telemetry
}

// NewExceptionRecorder creates an ExceptionRecorder. tel may be nil.
func NewExceptionRecorder(cfg *config.Exception, filter *ignore.Filter, sink Sink, tel *telemetry.Telemetry) *ExceptionRecorder {
	return &ExceptionRecorder{cfg: cfg, filter: filter, sink: sink, tel: tel}
}

// Record counts err once under name, or the configured metric name when
// empty. Nil and ignored errors are skipped.
func (r *ExceptionRecorder) Record(ctx context.Context, err error, tags types.Tags, name string) error {
	if !r.cfg.Enabled || err == nil {
		return nil
	}
	if r.filter != nil && r.filter.ShouldIgnoreException(err) {
		r.tel.Ignored(telemetry.ReasonException)
		return nil
	}
	if name == "" {
		name = r.cfg.MetricName
	}

	_, rerr := r.sink.Record(ctx, types.Observation{
		Name:  name,
		Value: 1,
		Tags:  r.tags(err, tags),
		Kind:  types.KindException,
	})
	return rerr
}

func (r *ExceptionRecorder) tags(err error, extra types.Tags) types.Tags {
	out := extra.Clone()
	frames := callers(r.cfg.TraceLines)
	for _, tag := range r.cfg.Tags {
		switch tag {
		case "exception_class":
			out["exception_class"] = ignore.ClassName(err)
		case "message":
			out["message"] = err.Error()
		case "file":
			out["file"] = "unknown"
			if len(frames) > 0 {
				out["file"] = frames[0].File
			}
		case "line":
			out["line"] = 0
			if len(frames) > 0 {
				out["line"] = frames[0].Line
			}
		case "code":
			out["code"] = 0
			var c Coder
			if errors.As(err, &c) {
				out["code"] = c.Code()
			}
		case "trace":
			out["trace"] = r.trace(frames)
		}
	}
	return out
}

// trace renders frames one per line, bounded by trace_lines and
// trace_max_chars.
func (r *ExceptionRecorder) trace(frames []runtime.Frame) string {
	lines := make([]string, 0, len(frames))
	for i, f := range frames {
		if r.cfg.TraceLines > 0 && i >= r.cfg.TraceLines {
			break
		}
		lines = append(lines, fmt.Sprintf("#%d %s:%d %s", i, f.File, f.Line, f.Function))
	}
	return truncate(strings.Join(lines, "\n"), r.cfg.TraceMaxChars)
}
