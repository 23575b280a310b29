// Package manager wires the collector together and is the entry point for
// application code.
//
//	m, err := manager.New(ctx, cfg)
//	if err != nil { ... }
//	defer m.Close()
//
//	m.Increment(ctx, "orders.created", 1, types.Tags{"region": "eu"})
//	err = m.Time(ctx, "checkout", nil, func(ctx context.Context) error {
//		return checkout(ctx)
//	})
//
// Drivers named in the configuration must be registered by importing their
// packages, for example github.com/ncobase/lamet/data/all.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/lamet/aggregator"
	"github.com/ncobase/lamet/cache"
	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/exporter"
	"github.com/ncobase/lamet/flusher"
	"github.com/ncobase/lamet/ignore"
	"github.com/ncobase/lamet/logging/logger"
	"github.com/ncobase/lamet/recorder"
	"github.com/ncobase/lamet/retention"
	"github.com/ncobase/lamet/storage"
	"github.com/ncobase/lamet/telemetry"
	"github.com/ncobase/lamet/types"
)

// Manager is safe for concurrent use.
type Manager struct {
	cfg        *config.Config
	filter     *ignore.Filter
	aggregator *aggregator.Aggregator
	flusher    *flusher.Flusher
	sweeper    *retention.Sweeper
	queries    *recorder.QueryRecorder
	exceptions *recorder.ExceptionRecorder
	storage    storage.Store
	tel        *telemetry.Telemetry
	now        func() time.Time
	closers    []func() error
}

// New validates cfg and builds a Manager from it, opening every backend
// that was not injected through an Option. A missing storage configuration is not an
// error here; Flush, Clean and GetMetrics then fail with
// storage.ErrNoStorage.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.tel == nil {
		o.tel = telemetry.New()
	}
	for _, w := range cfg.Warnings() {
		logger.Warnf(ctx, "config: %s", w)
	}

	m := &Manager{cfg: cfg, tel: o.tel, now: o.now}

	if o.store == nil || o.ledger == nil || o.locker == nil {
		backend, err := cache.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, backend.Close)
		if o.store == nil {
			o.store = backend.Store
		}
		if o.ledger == nil {
			o.ledger = backend.Ledger
		}
		if o.locker == nil {
			o.locker = backend.Locker
		}
	}

	if !o.storageSet {
		st, err := storage.Open(ctx, cfg)
		switch {
		case errors.Is(err, storage.ErrNoStorage):
			logger.Warnf(ctx, "metrics will not be persisted: %v", err)
		case err != nil:
			_ = m.Close()
			return nil, err
		default:
			o.storage = st
			m.closers = append(m.closers, st.Close)
		}
	}
	m.storage = o.storage

	if !o.publisherSet {
		p, err := exporter.Open(ctx, cfg)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		if p != nil {
			o.publisher = p
			m.closers = append(m.closers, p.Close)
		}
	}

	mc := cfg.Metrics
	m.filter = ignore.New(mc.Ignore, mc.Table)
	m.aggregator = aggregator.New(mc, o.store, o.ledger, m.filter,
		aggregator.WithClock(o.now),
		aggregator.WithTelemetry(o.tel),
	)
	flushOpts := []flusher.Option{flusher.WithClock(o.now), flusher.WithTelemetry(o.tel)}
	if o.publisher != nil {
		flushOpts = append(flushOpts, flusher.WithPublisher(o.publisher))
	}
	m.flusher = flusher.New(mc, o.store, o.ledger, o.locker, o.storage, flushOpts...)
	m.sweeper = retention.New(o.storage, o.tel, o.now)
	m.queries = recorder.NewQueryRecorder(mc.DBQuery, m.filter, m.aggregator, o.tel)
	m.exceptions = recorder.NewExceptionRecorder(mc.Exception, m.filter, m.aggregator, o.tel)
	return m, nil
}

// Config returns the configuration the Manager was built from.
func (m *Manager) Config() *config.Config { return m.cfg }

// Telemetry returns the self metrics.
func (m *Manager) Telemetry() *telemetry.Telemetry { return m.tel }

// Record merges one observation and returns its fingerprint. An empty kind
// records a counter.
func (m *Manager) Record(ctx context.Context, name string, value float64, tags types.Tags, kind types.Kind, unit string) (string, error) {
	return m.aggregator.Record(ctx, types.Observation{
		Name:  name,
		Value: value,
		Tags:  tags,
		Kind:  kind,
		Unit:  unit,
	})
}

// Increment adds value to a counter.
func (m *Manager) Increment(ctx context.Context, name string, value float64, tags types.Tags) error {
	_, err := m.Record(ctx, name, value, tags, types.KindCounter, "")
	return err
}

// Decrement subtracts value from a counter.
func (m *Manager) Decrement(ctx context.Context, name string, value float64, tags types.Tags) error {
	_, err := m.Record(ctx, name, -value, tags, types.KindCounter, "")
	return err
}

// Gauge records a gauge reading.
func (m *Manager) Gauge(ctx context.Context, name string, value float64, tags types.Tags, unit string) error {
	_, err := m.Record(ctx, name, value, tags, types.KindGauge, unit)
	return err
}

// Time runs fn and records its wall time in milliseconds as a timer. When
// fn fails or panics the timing carries error=true and the failure is passed
// on unchanged. Exactly one timing is recorded per call; a failure to record
// it is logged.
func (m *Manager) Time(ctx context.Context, name string, tags types.Tags, fn func(context.Context) error) (err error) {
	start := m.now()
	defer func() {
		if r := recover(); r != nil {
			m.recordTiming(ctx, name, tags, start, panicError(r))
			panic(r)
		}
	}()

	err = fn(ctx)
	m.recordTiming(ctx, name, tags, start, err)
	return err
}

// TimeValue is Time for work that returns a value.
func TimeValue[T any](ctx context.Context, m *Manager, name string, tags types.Tags, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := m.Time(ctx, name, tags, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (m *Manager) recordTiming(ctx context.Context, name string, tags types.Tags, start time.Time, failure error) {
	if failure != nil {
		tags = tags.With("error", true)
	}
	ms := float64(m.now().Sub(start)) / float64(time.Millisecond)
	if _, err := m.Record(ctx, name, ms, tags, types.KindTimer, "ms"); err != nil {
		logger.Warnf(ctx, "failed to record timing %s: %v", name, err)
	}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

// DBQuery records an executed statement.
func (m *Manager) DBQuery(ctx context.Context, evt recorder.QueryEvent, tags types.Tags, name string) error {
	return m.queries.Record(ctx, evt, tags, name)
}

// Exception records an error occurrence.
func (m *Manager) Exception(ctx context.Context, err error, tags types.Tags, name string) error {
	return m.exceptions.Record(ctx, err, tags, name)
}

// HTTPMiddleware times every request and applies path ignore rules to
// everything recorded while serving it.
func (m *Manager) HTTPMiddleware(name string) gin.HandlerFunc {
	return recorder.HTTPMiddleware(m.aggregator, name)
}

// Flush persists pending aggregates. It does nothing when collection is
// disabled.
func (m *Manager) Flush(ctx context.Context) (int, error) {
	if !m.cfg.Metrics.Enabled {
		return 0, nil
	}
	return m.flusher.Flush(ctx)
}

// Clean deletes stored records older than daysToKeep days.
func (m *Manager) Clean(ctx context.Context, daysToKeep int, dryRun bool) (*retention.Result, error) {
	return m.sweeper.Clean(ctx, daysToKeep, dryRun)
}

// GetMetrics queries stored records, newest first.
func (m *Manager) GetMetrics(ctx context.Context, filter storage.Filter) ([]types.Record, error) {
	if m.storage == nil {
		return nil, storage.ErrNoStorage
	}
	return m.storage.Query(ctx, filter)
}

// Migrate installs the metrics table.
func (m *Manager) Migrate(ctx context.Context) error {
	if m.storage == nil {
		return storage.ErrNoStorage
	}
	return m.storage.Migrate(ctx)
}

// Pending returns the fingerprints awaiting a flush.
func (m *Manager) Pending(ctx context.Context) ([]string, error) {
	return m.flusher.Pending(ctx)
}

// Depth returns the size of the pending ledger.
func (m *Manager) Depth(ctx context.Context) (int64, error) {
	return m.flusher.Depth(ctx)
}

// Peek returns the aggregates awaiting a flush.
func (m *Manager) Peek(ctx context.Context) ([]types.AggregatedMetric, error) {
	return m.flusher.Peek(ctx)
}

// Close releases the backends New opened, in reverse order.
func (m *Manager) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}
