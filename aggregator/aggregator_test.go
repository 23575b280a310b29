package aggregator

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ncobase/lamet/cache"
	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/ctxutil"
	"github.com/ncobase/lamet/fingerprint"
	"github.com/ncobase/lamet/ignore"
	"github.com/ncobase/lamet/telemetry"
	"github.com/ncobase/lamet/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	cfg    *config.Metrics
	store  *cache.MemoryStore
	ledger *cache.MemoryLedger
	tel    *telemetry.Telemetry
	agg    *Aggregator
	now    time.Time
}

func newFixture(t *testing.T, mutate func(*config.Metrics)) *fixture {
	t.Helper()
	cfg := config.Default().Metrics
	cfg.DefaultTags = map[string]any{"environment": "testing", "app_name": "lamet"}
	cfg.Ignore.Paths = []string{"/health", "/internal/*"}
	if mutate != nil {
		mutate(cfg)
	}

	f := &fixture{cfg: cfg, now: start, tel: telemetry.New()}
	f.store = cache.NewMemoryStore(func() time.Time { return f.now })
	f.ledger = cache.NewMemoryLedger()
	f.agg = New(cfg, f.store, f.ledger, ignore.New(cfg.Ignore, cfg.Table),
		WithClock(func() time.Time { return f.now }),
		WithTelemetry(f.tel),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	return f
}

func (f *fixture) entry(t *testing.T, fp string) *cache.Entry {
	t.Helper()
	e, err := f.store.Get(context.Background(), cache.Key(f.cfg.Cache.Prefix, fp))
	require.NoError(t, err)
	return e
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecordAggregatesSameFingerprint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	obs := types.Observation{Name: "orders.created", Value: 2, Tags: types.Tags{"region": "eu"}}
	fp1, err := f.agg.Record(ctx, obs)
	require.NoError(t, err)

	f.now = start.Add(time.Minute)
	obs.Value = 3
	fp2, err := f.agg.Record(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	e := f.entry(t, fp1)
	require.NotNil(t, e)
	assert.Equal(t, 5.0, e.Metric.Value)
	assert.Equal(t, int64(2), e.Metric.Count)
	assert.True(t, e.Metric.FirstSeen.Equal(start), "first seen is immutable")
	assert.Equal(t, types.KindCounter, e.Metric.Kind, "empty kind defaults to counter")

	members, err := f.ledger.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{fp1}, members, "ledger holds each fingerprint once")
	assert.Equal(t, 2.0, counterValue(t, f.tel.Registry(), "lamet_records_total", map[string]string{"kind": "counter"}))
}

func TestRecordSeparatesByKindUnitAndTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	fps := map[string]struct{}{}
	for _, obs := range []types.Observation{
		{Name: "latency", Value: 1, Kind: types.KindTimer, Unit: "ms"},
		{Name: "latency", Value: 1, Kind: types.KindTimer, Unit: "s"},
		{Name: "latency", Value: 1, Kind: types.KindGauge, Unit: "ms"},
		{Name: "latency", Value: 1, Kind: types.KindTimer, Unit: "ms", Tags: types.Tags{"route": "/a"}},
	} {
		fp, err := f.agg.Record(ctx, obs)
		require.NoError(t, err)
		fps[fp] = struct{}{}
	}
	assert.Len(t, fps, 4)

	n, err := f.ledger.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestRecordMergesDefaultTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	fp, err := f.agg.Record(ctx, types.Observation{
		Name:  "jobs.done",
		Value: 1,
		Tags:  types.Tags{"environment": "staging", "queue": "mail"},
	})
	require.NoError(t, err)

	want := types.Tags{"environment": "staging", "app_name": "lamet", "queue": "mail"}
	assert.Equal(t, fingerprint.Fingerprint(types.KindCounter, "jobs.done", "", want), fp)

	e := f.entry(t, fp)
	require.NotNil(t, e)
	assert.Equal(t, "staging", e.Metric.Tags["environment"], "observation tags win")
	assert.Equal(t, "lamet", e.Metric.Tags["app_name"])
}

func TestRecordIgnoredPath(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/health", "/internal/jobs", "/internal"} {
		ctx := ctxutil.SetRequestPath(context.Background(), path)
		fp, err := f.agg.Record(ctx, types.Observation{Name: "hits", Value: 1})
		require.NoError(t, err)
		assert.Empty(t, fp, path)
	}
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 3.0, counterValue(t, f.tel.Registry(), "lamet_ignored_total", map[string]string{"reason": telemetry.ReasonPath}))

	ctx := ctxutil.SetRequestPath(context.Background(), "/internalx")
	fp, err := f.agg.Record(ctx, types.Observation{Name: "hits", Value: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, fp)
}

func TestRecordDisabled(t *testing.T) {
	f := newFixture(t, func(c *config.Metrics) { c.Enabled = false })

	fp, err := f.agg.Record(context.Background(), types.Observation{Name: "hits", Value: 1})
	require.NoError(t, err)
	assert.Empty(t, fp)
	assert.Equal(t, 0, f.store.Len())
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.agg.Record(context.Background(), types.Observation{Name: "x", Value: 1, Kind: "histogram"})
	var recErr *types.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "x", recErr.Name)
}

func TestRecordRejectsUnstorableObservations(t *testing.T) {
	tests := []struct {
		name string
		obs  types.Observation
	}{
		{"nan value", types.Observation{Name: "ratio", Value: math.NaN(), Kind: types.KindGauge}},
		{"positive infinity", types.Observation{Name: "ratio", Value: math.Inf(1), Kind: types.KindGauge}},
		{"negative infinity", types.Observation{Name: "hits", Value: math.Inf(-1)}},
		{"nan tag", types.Observation{Name: "hits", Value: 1, Tags: map[string]any{"ratio": math.NaN()}}},
		{"infinite tag", types.Observation{Name: "hits", Value: 1, Tags: map[string]any{"ratio": math.Inf(1)}}},
		{"nested tag", types.Observation{Name: "hits", Value: 1, Tags: map[string]any{
			"route": map[string]any{"weight": math.Inf(-1)},
		}}},
		{"unencodable tag", types.Observation{Name: "hits", Value: 1, Tags: map[string]any{"done": make(chan struct{})}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			fp, err := f.agg.Record(context.Background(), tt.obs)
			var recErr *types.RecordError
			require.ErrorAs(t, err, &recErr)
			assert.Equal(t, tt.obs.Name, recErr.Name)
			assert.ErrorIs(t, err, ErrInvalidObservation)
			assert.Empty(t, fp)
			assert.Equal(t, 0, f.store.Len())

			depth, err := f.ledger.Len(context.Background())
			require.NoError(t, err)
			assert.Zero(t, depth)
		})
	}
}

func TestRecordRejectsOverflowingSum(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	obs := types.Observation{Name: "bytes", Value: math.MaxFloat64, Kind: types.KindGauge}

	fp, err := f.agg.Record(ctx, obs)
	require.NoError(t, err)

	_, err = f.agg.Record(ctx, obs)
	assert.ErrorIs(t, err, ErrInvalidObservation)

	e := f.entry(t, fp)
	require.NotNil(t, e)
	assert.Equal(t, math.MaxFloat64, e.Metric.Value)
	assert.Equal(t, int64(1), e.Metric.Count)
}

func TestRecordRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(c *config.Metrics) { c.Cache.TTL = time.Minute })

	fp, err := f.agg.Record(ctx, types.Observation{Name: "g", Value: 1, Kind: types.KindGauge})
	require.NoError(t, err)

	f.now = start.Add(50 * time.Second)
	_, err = f.agg.Record(ctx, types.Observation{Name: "g", Value: 1, Kind: types.KindGauge})
	require.NoError(t, err)

	f.now = start.Add(100 * time.Second)
	e := f.entry(t, fp)
	require.NotNil(t, e, "second write pushed expiry to 110s")
	assert.Equal(t, int64(2), e.Metric.Count)
}

func TestRecordConcurrentWritersLoseNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(c *config.Metrics) { c.Cache.MaxRetries = 10000 })

	const (
		workers = 8
		perG    = 50
	)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				if _, err := f.agg.Record(ctx, types.Observation{Name: "t", Value: 2, Kind: types.KindTimer, Unit: "ms"}); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	fp := fingerprint.Fingerprint(types.KindTimer, "t", "ms", types.Tags(f.cfg.DefaultTags))
	e := f.entry(t, fp)
	require.NotNil(t, e)
	assert.Equal(t, float64(2*workers*perG), e.Metric.Value)
	assert.Equal(t, int64(workers*perG), e.Metric.Count)
}

// contendedStore loses every compare-and-swap.
type contendedStore struct {
	*cache.MemoryStore
	attempts int
}

func (s *contendedStore) CompareAndSwap(context.Context, string, uint64, types.AggregatedMetric, time.Duration) (bool, error) {
	s.attempts++
	return false, nil
}

func TestRecordContentionExhausted(t *testing.T) {
	cfg := config.Default().Metrics
	cfg.Cache.MaxRetries = 3
	store := &contendedStore{MemoryStore: cache.NewMemoryStore(nil)}
	ledger := cache.NewMemoryLedger()
	tel := telemetry.New()
	agg := New(cfg, store, ledger, ignore.New(cfg.Ignore, cfg.Table),
		WithTelemetry(tel),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)

	_, err := agg.Record(context.Background(), types.Observation{Name: "g", Value: 1, Kind: types.KindGauge})
	require.ErrorIs(t, err, ErrContention)
	var recErr *types.RecordError
	require.ErrorAs(t, err, &recErr)

	assert.Equal(t, 3, store.attempts)
	n, _ := ledger.Len(context.Background())
	assert.Zero(t, n, "nothing is marked pending")
	assert.Equal(t, 1.0, counterValue(t, tel.Registry(), "lamet_cas_exhausted_total", nil))
	assert.Equal(t, 3.0, counterValue(t, tel.Registry(), "lamet_cas_retries_total", nil))
}

// accumulatingStore records which path each observation took.
type accumulatingStore struct {
	*cache.MemoryStore
	accumulated []string
}

func (s *accumulatingStore) Accumulate(ctx context.Context, key string, obs types.Observation, now time.Time, ttl time.Duration) error {
	s.accumulated = append(s.accumulated, obs.Name)
	e, _ := s.Get(ctx, key)
	if e == nil {
		_, err := s.CompareAndSwap(ctx, key, 0, types.NewAggregatedMetric(obs, now), ttl)
		return err
	}
	m := e.Metric
	m.Merge(obs)
	_, err := s.CompareAndSwap(ctx, key, e.Rev, m, ttl)
	return err
}

func TestRecordUsesAccumulatorForCounters(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default().Metrics
	store := &accumulatingStore{MemoryStore: cache.NewMemoryStore(nil)}
	agg := New(cfg, store, cache.NewMemoryLedger(), ignore.New(cfg.Ignore, cfg.Table))

	_, err := agg.Record(ctx, types.Observation{Name: "hits", Value: 1})
	require.NoError(t, err)
	_, err = agg.Record(ctx, types.Observation{Name: "latency", Value: 1, Kind: types.KindTimer})
	require.NoError(t, err)

	assert.Equal(t, []string{"hits"}, store.accumulated)
}
