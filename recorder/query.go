package recorder

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/ignore"
	"github.com/ncobase/lamet/telemetry"
	"github.com/ncobase/lamet/types"
)

const maxSQLTag = 200

// QueryEvent describes one executed statement.
type QueryEvent struct {
	SQL        string
	Duration   time.Duration
	Connection string
	// File and Line locate the statement; when empty the first caller
	// outside lamet and database/sql is used.
	File string
	Line int
}

// QueryRecorder records statement timings.
type QueryRecorder struct {
	cfg    *config.DBQuery
	filter *ignore.Filter
	sink   Sink
	tel    *telemetry.Telemetry
}

// NewQueryRecorder creates a QueryRecorder. tel may be nil.
func NewQueryRecorder(cfg *config.DBQuery, filter *ignore.Filter, sink Sink, tel *telemetry.Telemetry) *QueryRecorder {
	return &QueryRecorder{cfg: cfg, filter: filter, sink: sink, tel: tel}
}

// Record times evt as a "ms" timer named name, or the configured metric
// name when empty. Slow statements use the slow suffix; when only slow
// statements are stored the others are dropped.
func (r *QueryRecorder) Record(ctx context.Context, evt QueryEvent, tags types.Tags, name string) error {
	if !r.cfg.Enabled {
		return nil
	}
	if r.filter != nil && r.filter.ShouldIgnoreQuery(evt.SQL) {
		r.tel.Ignored(telemetry.ReasonQuery)
		return nil
	}

	slow := evt.Duration >= r.cfg.SlowQueryThreshold
	if r.cfg.StoreOnlySlowQuery && !slow {
		return nil
	}

	if name == "" {
		name = r.cfg.MetricName
	}
	ms := float64(evt.Duration) / float64(time.Millisecond)
	tags = r.tags(evt, tags, ms)

	record := func(n string) error {
		_, err := r.sink.Record(ctx, types.Observation{
			Name:  n,
			Value: ms,
			Tags:  tags,
			Kind:  types.KindTimer,
			Unit:  "ms",
		})
		return err
	}

	if !r.cfg.StoreOnlySlowQuery {
		if err := record(name); err != nil {
			return err
		}
	}
	if slow {
		return record(name + r.cfg.SlowQueryNameSuffix)
	}
	return nil
}

func (r *QueryRecorder) tags(evt QueryEvent, extra types.Tags, ms float64) types.Tags {
	out := extra.Clone()
	file, line := evt.File, evt.Line
	if file == "" {
		file, line = "unknown", 0
		if frames := callers(1); len(frames) > 0 {
			file, line = frames[0].File, frames[0].Line
		}
	}
	for _, tag := range r.cfg.Tags {
		switch tag {
		case "connection":
			out["connection"] = evt.Connection
		case "sql":
			out["sql"] = NormalizeSQL(evt.SQL)
		case "duration":
			out["duration"] = math.Round(ms*100) / 100
		case "file":
			out["file"] = file
		case "line":
			out["line"] = line
		}
	}
	return out
}

// NormalizeSQL collapses whitespace and caps the statement at 200
// characters.
func NormalizeSQL(sql string) string {
	return truncate(strings.Join(strings.Fields(sql), " "), maxSQLTag)
}
