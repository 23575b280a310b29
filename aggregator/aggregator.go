// Package aggregator merges observations into the shared cache and marks
// their fingerprints pending in the ledger.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ncobase/lamet/cache"
	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/ctxutil"
	"github.com/ncobase/lamet/fingerprint"
	"github.com/ncobase/lamet/ignore"
	"github.com/ncobase/lamet/logging/logger"
	"github.com/ncobase/lamet/telemetry"
	"github.com/ncobase/lamet/types"
	"github.com/sirupsen/logrus"
)

// ErrContention is returned when every compare-and-swap attempt lost to a
// concurrent writer. The observation was not recorded; retrying is safe.
var ErrContention = errors.New("aggregator: cache entry contended")

// ErrInvalidObservation is returned for values or tags storage cannot
// encode. Such observations never reach the cache.
var ErrInvalidObservation = errors.New("aggregator: invalid observation")

var errConflict = errors.New("revision changed")

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the clock stamping first observations.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithTelemetry counts records, ignores and retries.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(a *Aggregator) { a.tel = t }
}

// WithBackOff replaces the delay policy between compare-and-swap attempts.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(a *Aggregator) { a.newBackOff = fn }
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	cfg        *config.Metrics
	store      cache.Store
	ledger     cache.Ledger
	filter     *ignore.Filter
	tel        *telemetry.Telemetry
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// New creates an Aggregator writing to store and ledger.
func New(cfg *config.Metrics, store cache.Store, ledger cache.Ledger, filter *ignore.Filter, opts ...Option) *Aggregator {
	a := &Aggregator{
		cfg:        cfg,
		store:      store,
		ledger:     ledger,
		filter:     filter,
		now:        time.Now,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	return b
}

// Record merges obs into the cache entry of its fingerprint and returns the
// fingerprint. It returns "" without error when collection is disabled or
// the request path in ctx is ignored. Failures are *types.RecordError.
func (a *Aggregator) Record(ctx context.Context, obs types.Observation) (string, error) {
	if !a.cfg.Enabled {
		return "", nil
	}
	if path, ok := ctxutil.GetRequestPath(ctx); ok && a.filter != nil && a.filter.ShouldIgnorePath(path) {
		a.tel.Ignored(telemetry.ReasonPath)
		return "", nil
	}

	obs.Kind = obs.Kind.OrDefault()
	if !obs.Kind.Valid() {
		return "", types.NewRecordError(obs.Name, fmt.Errorf("unknown metric kind %q", obs.Kind))
	}
	obs.Tags = types.Tags(a.cfg.DefaultTags).Merge(obs.Tags)
	if err := validate(obs); err != nil {
		return "", types.NewRecordError(obs.Name, err)
	}

	fp := fingerprint.Fingerprint(obs.Kind, obs.Name, obs.Unit, obs.Tags)
	key := cache.Key(a.cfg.Cache.Prefix, fp)

	if err := a.merge(ctx, key, obs); err != nil {
		return "", types.NewRecordError(obs.Name, err)
	}
	if err := a.ledger.Add(ctx, fp); err != nil {
		return "", types.NewRecordError(obs.Name, err)
	}

	a.tel.Recorded(obs.Kind.String())
	if a.cfg.LogMetrics {
		logger.WithFields(ctx, logrus.Fields{
			"name":        obs.Name,
			"value":       obs.Value,
			"type":        obs.Kind,
			"unit":        obs.Unit,
			"tags":        obs.Tags,
			"fingerprint": fp,
		}).Info("metric recorded")
	}
	return fp, nil
}

// validate rejects observations a bulk insert could not store.
func validate(obs types.Observation) error {
	if !finite(obs.Value) {
		return fmt.Errorf("%w: value %v is not finite", ErrInvalidObservation, obs.Value)
	}
	if _, err := json.Marshal(obs.Tags); err != nil {
		return fmt.Errorf("%w: tags: %v", ErrInvalidObservation, err)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (a *Aggregator) merge(ctx context.Context, key string, obs types.Observation) error {
	ttl := a.cfg.Cache.TTL

	if acc, ok := a.store.(cache.Accumulator); ok && obs.Kind == types.KindCounter {
		return acc.Accumulate(ctx, key, obs, a.now(), ttl)
	}

	tries := a.cfg.Cache.MaxRetries
	if tries < 1 {
		tries = 1
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		entry, err := a.store.Get(ctx, key)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		var (
			rev    uint64
			metric types.AggregatedMetric
		)
		if entry == nil {
			metric = types.NewAggregatedMetric(obs, a.now())
		} else {
			rev = entry.Rev
			metric = entry.Metric
			metric.Merge(obs)
			if !finite(metric.Value) {
				return struct{}{}, backoff.Permanent(fmt.Errorf("%w: sum overflows float64", ErrInvalidObservation))
			}
		}

		swapped, err := a.store.CompareAndSwap(ctx, key, rev, metric, ttl)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !swapped {
			a.tel.CASRetry()
			return struct{}{}, errConflict
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(a.newBackOff()),
		backoff.WithMaxTries(uint(tries)),
	)

	if errors.Is(err, errConflict) {
		a.tel.CASExhausted()
		logger.Warnf(ctx, "metric %s dropped after %d contended attempts on %s", obs.Name, tries, key)
		return fmt.Errorf("%w: %s", ErrContention, key)
	}
	return err
}
