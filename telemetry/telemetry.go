// Package telemetry exposes the collector's own counters as Prometheus
// metrics and the tracer used around flushes and sweeps.
//
// All methods are safe on a nil *Telemetry, which records nothing.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of lamet spans.
const TracerName = "github.com/ncobase/lamet"

// Ignore reasons.
const (
	ReasonPath      = "path"
	ReasonException = "exception"
	ReasonQuery     = "query"
)

// Flush results.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Telemetry holds the self metrics on a dedicated registry.
type Telemetry struct {
	registry *prometheus.Registry

	records        *prometheus.CounterVec
	ignored        *prometheus.CounterVec
	casRetries     prometheus.Counter
	casExhausted   prometheus.Counter
	flushes        *prometheus.CounterVec
	flushed        prometheus.Counter
	flushDuration  prometheus.Histogram
	cleaned        prometheus.Counter
	exportFailures prometheus.Counter
}

// New registers the self metrics on a new registry, together with the Go
// runtime and process collectors.
func New() *Telemetry {
	t := &Telemetry{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lamet_records_total",
			Help: "Observations merged into the cache, by kind",
		}, []string{"kind"}),
		ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lamet_ignored_total",
			Help: "Observations dropped by ignore rules, by reason",
		}, []string{"reason"}),
		casRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lamet_cas_retries_total",
			Help: "Compare-and-swap attempts lost to a concurrent writer",
		}),
		casExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lamet_cas_exhausted_total",
			Help: "Observations dropped after exhausting compare-and-swap retries",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lamet_flush_total",
			Help: "Flush attempts, by result",
		}, []string{"result"}),
		flushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lamet_flushed_metrics_total",
			Help: "Aggregated metrics persisted to storage",
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lamet_flush_duration_seconds",
			Help:    "Duration of flushes that reached storage",
			Buckets: prometheus.DefBuckets,
		}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lamet_cleaned_total",
			Help: "Stored records removed by retention sweeps",
		}),
		exportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lamet_export_failures_total",
			Help: "Flushed batches the exporter failed to publish",
		}),
	}

	t.registry.MustRegister(
		t.records, t.ignored, t.casRetries, t.casExhausted,
		t.flushes, t.flushed, t.flushDuration, t.cleaned, t.exportFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, r := range []string{ResultOK, ResultError, ResultSkipped} {
		t.flushes.WithLabelValues(r)
	}
	return t
}

// Registry returns the registry the self metrics live on.
func (t *Telemetry) Registry() *prometheus.Registry {
	if t == nil {
		return nil
	}
	return t.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (t *Telemetry) Handler() http.Handler {
	if t == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

func (t *Telemetry) Recorded(kind string) {
	if t != nil {
		t.records.WithLabelValues(kind).Inc()
	}
}

func (t *Telemetry) Ignored(reason string) {
	if t != nil {
		t.ignored.WithLabelValues(reason).Inc()
	}
}

func (t *Telemetry) CASRetry() {
	if t != nil {
		t.casRetries.Inc()
	}
}

func (t *Telemetry) CASExhausted() {
	if t != nil {
		t.casExhausted.Inc()
	}
}

// Flushed records one flush attempt. n and d are only counted on success.
func (t *Telemetry) Flushed(result string, n int, d time.Duration) {
	if t == nil {
		return
	}
	t.flushes.WithLabelValues(result).Inc()
	if result == ResultOK {
		t.flushed.Add(float64(n))
		t.flushDuration.Observe(d.Seconds())
	}
}

func (t *Telemetry) Cleaned(n int64) {
	if t != nil {
		t.cleaned.Add(float64(n))
	}
}

func (t *Telemetry) ExportFailed() {
	if t != nil {
		t.exportFailures.Inc()
	}
}

// Tracer returns the tracer of the globally installed provider. Without
// an SDK it is a no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
