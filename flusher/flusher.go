// Package flusher drains pending aggregates from the cache into storage.
package flusher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/lamet/cache"
	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/exporter"
	"github.com/ncobase/lamet/logging/logger"
	"github.com/ncobase/lamet/storage"
	"github.com/ncobase/lamet/telemetry"
	"github.com/ncobase/lamet/types"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Option configures a Flusher.
type Option func(*Flusher)

// WithPublisher forwards every flushed batch to p.
func WithPublisher(p exporter.Publisher) Option {
	return func(f *Flusher) { f.publisher = p }
}

// WithTelemetry counts flushes.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(f *Flusher) { f.tel = t }
}

// WithClock sets the clock stamping created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(f *Flusher) { f.now = now }
}

// Flusher is safe for concurrent use; the lock serializes flushes across
// every process sharing the cache.
type Flusher struct {
	cfg       *config.Metrics
	store     cache.Store
	ledger    cache.Ledger
	locker    cache.Locker
	storage   storage.Store
	publisher exporter.Publisher
	tel       *telemetry.Telemetry
	now       func() time.Time
}

// New creates a Flusher. A nil st makes Flush fail with storage.ErrNoStorage.
func New(cfg *config.Metrics, store cache.Store, ledger cache.Ledger, locker cache.Locker, st storage.Store, opts ...Option) *Flusher {
	f := &Flusher{
		cfg:     cfg,
		store:   store,
		ledger:  ledger,
		locker:  locker,
		storage: st,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type snapshot struct {
	fingerprint string
	entry       cache.Entry
}

// Flush persists every pending aggregate and returns how many were written.
// It returns 0 without error when another flush holds the lock. The first
// failing batch stops the flush: batches written before it are retired from
// the cache, everything else stays pending.
func (f *Flusher) Flush(ctx context.Context) (n int, err error) {
	if f.storage == nil {
		return 0, storage.ErrNoStorage
	}

	ctx, span := telemetry.Tracer().Start(ctx, "lamet.flush")
	defer func() {
		span.SetAttributes(attribute.Int("lamet.flushed", n))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	unlock, ok, err := f.locker.TryLock(ctx)
	if err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	if !ok {
		logger.Debugf(ctx, "flush skipped, lock held elsewhere")
		f.tel.Flushed(telemetry.ResultSkipped, 0, 0)
		return 0, nil
	}
	defer func() {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			logger.Warnf(ctx, "flush: release lock: %v", uerr)
		}
	}()

	started := time.Now()
	n, err = f.flush(ctx)
	if err != nil {
		f.tel.Flushed(telemetry.ResultError, 0, 0)
		logger.Errorf(ctx, "failed to flush metrics after storing %d: %v", n, err)
		return n, err
	}
	f.tel.Flushed(telemetry.ResultOK, n, time.Since(started))
	return n, nil
}

func (f *Flusher) flush(ctx context.Context) (int, error) {
	members, err := f.ledger.Members(ctx)
	if err != nil {
		return 0, fmt.Errorf("flush: read ledger: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	snaps, stale, err := f.snapshot(ctx, members)
	if err != nil {
		return 0, err
	}

	now := f.now()
	records := make([]types.Record, len(snaps))
	for i, s := range snaps {
		records[i] = s.entry.Metric.ToRecord(now)
	}

	size := f.cfg.Cache.BatchSize
	if size <= 0 {
		size = max(len(records), 1)
	}
	total := (len(records) + size - 1) / size
	for i := 0; i < total; i++ {
		lo := i * size
		hi := min(lo+size, len(records))
		if err := f.storage.BulkInsert(ctx, records[lo:hi]); err != nil {
			f.settle(ctx, snaps[:lo], nil)
			return lo, fmt.Errorf("flush: batch %d/%d: %w", i+1, total, err)
		}
		if f.cfg.LogMetrics {
			logger.WithFields(ctx, logrus.Fields{
				"batch":   i + 1,
				"batches": total,
				"metrics": records[lo:hi],
			}).Info("metrics batch stored")
		}
	}

	f.settle(ctx, snaps, stale)

	if len(records) > 0 {
		logger.Infof(ctx, "stored %d metrics in %d batches", len(records), total)
		f.publish(ctx, records)
	}
	return len(records), nil
}

// snapshot reads the cached entry of every member. Members without an entry
// are stale: their data expired or was already flushed.
func (f *Flusher) snapshot(ctx context.Context, members []string) ([]snapshot, []string, error) {
	snaps := make([]snapshot, 0, len(members))
	var stale []string
	for _, fp := range members {
		e, err := f.store.Get(ctx, cache.Key(f.cfg.Cache.Prefix, fp))
		if err != nil {
			return nil, nil, fmt.Errorf("flush: read %s: %w", fp, err)
		}
		if e == nil {
			stale = append(stale, fp)
			continue
		}
		snaps = append(snaps, snapshot{fingerprint: fp, entry: *e})
	}
	return snaps, stale, nil
}

// settle retires the flushed snapshots. Entries merged into after their
// snapshot keep the remainder and go back on the ledger.
func (f *Flusher) settle(ctx context.Context, snaps []snapshot, stale []string) {
	var errs []error
	for _, s := range snaps {
		if err := f.ledger.Remove(ctx, s.fingerprint); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted, err := f.store.Settle(ctx, cache.Key(f.cfg.Cache.Prefix, s.fingerprint), s.entry)
		if err != nil {
			errs = append(errs, err)
		}
		if err != nil || !deleted {
			if err := f.ledger.Add(ctx, s.fingerprint); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(stale) > 0 {
		if err := f.ledger.Remove(ctx, stale...); err != nil {
			errs = append(errs, err)
		}
		// a merge may have recreated the entry since it was read
		for _, fp := range stale {
			e, err := f.store.Get(ctx, cache.Key(f.cfg.Cache.Prefix, fp))
			if err == nil && e == nil {
				continue
			}
			if err := f.ledger.Add(ctx, fp); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warnf(ctx, "flush: metrics stored but cache cleanup failed, they may be stored again: %v", err)
	}
}

func (f *Flusher) publish(ctx context.Context, records []types.Record) {
	if f.publisher == nil {
		return
	}
	if err := f.publisher.Publish(ctx, records); err != nil {
		f.tel.ExportFailed()
		logger.Warnf(ctx, "flush: export %d metrics: %v", len(records), err)
	}
}

// Pending returns the fingerprints awaiting a flush.
func (f *Flusher) Pending(ctx context.Context) ([]string, error) {
	members, err := f.ledger.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending: %w", err)
	}
	return members, nil
}

// Depth returns the number of fingerprints in the ledger, including ones
// whose cache entry has already expired.
func (f *Flusher) Depth(ctx context.Context) (int64, error) {
	n, err := f.ledger.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("depth: %w", err)
	}
	return n, nil
}

// Peek returns the cached aggregates awaiting a flush without taking the
// lock or changing anything.
func (f *Flusher) Peek(ctx context.Context) ([]types.AggregatedMetric, error) {
	members, err := f.Pending(ctx)
	if err != nil {
		return nil, err
	}
	snaps, _, err := f.snapshot(ctx, members)
	if err != nil {
		return nil, err
	}
	out := make([]types.AggregatedMetric, len(snaps))
	for i, s := range snaps {
		out[i] = s.entry.Metric
	}
	return out, nil
}
