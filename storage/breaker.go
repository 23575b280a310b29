package storage

import (
	"context"
	"time"

	"github.com/ncobase/lamet/logging/logger"
	"github.com/ncobase/lamet/types"
	"github.com/sony/gobreaker"
)

// BreakerStore guards the writes of another Store with a circuit breaker.
// While the breaker is open writes fail fast with gobreaker.ErrOpenState.
type BreakerStore struct {
	Store
	cb *gobreaker.CircuitBreaker
}

// NewBreakerStore trips after maxFailures consecutive write failures and
// lets a trial call through after openTimeout.
func NewBreakerStore(store Store, maxFailures uint32, openTimeout time.Duration) *BreakerStore {
	if maxFailures == 0 {
		maxFailures = 1
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "lamet.storage",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf(context.Background(), "circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &BreakerStore{Store: store, cb: cb}
}

// State returns the breaker state.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerStore) BulkInsert(ctx context.Context, records []types.Record) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.Store.BulkInsert(ctx, records)
	})
	return err
}

func (s *BreakerStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.cb.Execute(func() (any, error) {
		return s.Store.DeleteBefore(ctx, cutoff)
	})
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}
