package manager

import (
	"time"

	"github.com/ncobase/lamet/cache"
	"github.com/ncobase/lamet/exporter"
	"github.com/ncobase/lamet/storage"
	"github.com/ncobase/lamet/telemetry"
)

type options struct {
	store        cache.Store
	ledger       cache.Ledger
	locker       cache.Locker
	storage      storage.Store
	storageSet   bool
	publisher    exporter.Publisher
	publisherSet bool
	now          func() time.Time
	tel          *telemetry.Telemetry
}

// Option overrides a backend that New would otherwise open from
// configuration. Injected backends are not closed by Close.
type Option func(*options)

// WithCache sets the aggregation store.
func WithCache(store cache.Store) Option {
	return func(o *options) { o.store = store }
}

// WithLedger sets the pending ledger.
func WithLedger(ledger cache.Ledger) Option {
	return func(o *options) { o.ledger = ledger }
}

// WithLocker sets the flush lock.
func WithLocker(locker cache.Locker) Option {
	return func(o *options) { o.locker = locker }
}

// WithStorage sets the durable store. A nil store disables persistence.
func WithStorage(st storage.Store) Option {
	return func(o *options) {
		o.storage = st
		o.storageSet = true
	}
}

// WithPublisher sets the exporter. A nil publisher disables export.
func WithPublisher(p exporter.Publisher) Option {
	return func(o *options) {
		o.publisher = p
		o.publisherSet = true
	}
}

// WithClock sets the clock used for timestamps, timing and retention.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTelemetry shares a telemetry registry.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(o *options) { o.tel = t }
}
