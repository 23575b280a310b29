// Package cache holds aggregated metrics between flushes.
//
// A Store keeps one entry per fingerprint, a Ledger lists the fingerprints
// with unflushed data and a Locker makes flushes mutually exclusive. Memory
// implementations serve a single process; Redis implementations are shared
// by every process pointing at the same server.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ncobase/lamet/types"
)

// ErrLockNotHeld is returned when releasing a lock that expired or was
// taken over by another holder.
var ErrLockNotHeld = errors.New("cache: lock not held")

// LedgerSuffix and LockSuffix are appended to the key prefix.
const (
	LedgerSuffix = "unsaved_keys"
	LockSuffix   = "flush_lock"
)

// Entry is a cached aggregate with its revision. Revision 0 means absent;
// every successful write increments it.
type Entry struct {
	Metric types.AggregatedMetric
	Rev    uint64
}

// Store is the aggregation buffer.
type Store interface {
	// Get returns the entry at key, or nil on a miss.
	Get(ctx context.Context, key string) (*Entry, error)

	// CompareAndSwap writes metric when the stored revision equals rev
	// (0 for "absent") and refreshes the TTL. It reports whether the swap
	// happened.
	CompareAndSwap(ctx context.Context, key string, rev uint64, metric types.AggregatedMetric, ttl time.Duration) (bool, error)

	// Delete removes keys unconditionally.
	Delete(ctx context.Context, keys ...string) error

	// Settle retires a flushed snapshot. The entry is deleted if its
	// revision still equals the snapshot's; otherwise the snapshot's value
	// and count are subtracted so only merges made after the snapshot stay
	// cached. deleted reports which of the two happened.
	Settle(ctx context.Context, key string, snapshot Entry) (deleted bool, err error)
}

// Accumulator is implemented by stores that merge an observation with one
// native atomic operation, skipping the compare-and-swap loop.
type Accumulator interface {
	Accumulate(ctx context.Context, key string, obs types.Observation, now time.Time, ttl time.Duration) error
}

// Ledger is the ordered, duplicate free set of pending fingerprints.
type Ledger interface {
	Add(ctx context.Context, fingerprint string) error
	Members(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, fingerprints ...string) error
	Len(ctx context.Context) (int64, error)
}

// Locker grants the flush lock. ok is false when another holder has it.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, ok bool, err error)
}

// Key returns the cache key of a fingerprint.
func Key(prefix, fingerprint string) string {
	return prefix + fingerprint
}
