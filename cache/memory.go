package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/lamet/types"
)

// Clock returns the current time.
type Clock func() time.Time

type memoryEntry struct {
	metric  types.AggregatedMetric
	rev     uint64
	expires time.Time
}

// MemoryStore is an in-process Store. Expired entries read as misses.
type MemoryStore struct {
	mu      sync.Mutex
	now     Clock
	entries map[string]*memoryEntry
}

// NewMemoryStore creates a MemoryStore. A nil clock uses time.Now.
func NewMemoryStore(now Clock) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, entries: make(map[string]*memoryEntry)}
}

// live returns the unexpired entry at key; the caller holds mu.
func (s *MemoryStore) live(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func copyMetric(m types.AggregatedMetric) types.AggregatedMetric {
	if m.Tags != nil {
		m.Tags = m.Tags.Clone()
	}
	return m
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return nil, nil
	}
	return &Entry{Metric: copyMetric(e.metric), Rev: e.rev}, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, rev uint64, metric types.AggregatedMetric, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if e := s.live(key); e != nil {
		current = e.rev
	}
	if current != rev {
		return false, nil
	}
	s.entries[key] = &memoryEntry{metric: copyMetric(metric), rev: rev + 1, expires: s.expiry(ttl)}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

func (s *MemoryStore) Settle(_ context.Context, key string, snapshot Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return true, nil
	}
	if e.rev == snapshot.Rev {
		delete(s.entries, key)
		return true, nil
	}
	e.metric.Value -= snapshot.Metric.Value
	e.metric.Count -= snapshot.Metric.Count
	e.rev++
	return false, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.entries {
		if s.live(k) != nil {
			n++
		}
	}
	return n
}

// MemoryLedger is an in-process Ledger preserving insertion order.
type MemoryLedger struct {
	mu    sync.Mutex
	order []string
	index map[string]struct{}
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{index: make(map[string]struct{})}
}

func (l *MemoryLedger) Add(_ context.Context, fingerprint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[fingerprint]; ok {
		return nil
	}
	l.index[fingerprint] = struct{}{}
	l.order = append(l.order, fingerprint)
	return nil
}

func (l *MemoryLedger) Members(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.order))
	copy(out, l.order)
	return out, nil
}

func (l *MemoryLedger) Remove(_ context.Context, fingerprints ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	drop := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		if _, ok := l.index[fp]; ok {
			drop[fp] = struct{}{}
			delete(l.index, fp)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	kept := l.order[:0]
	for _, fp := range l.order {
		if _, ok := drop[fp]; !ok {
			kept = append(kept, fp)
		}
	}
	l.order = kept
	return nil
}

func (l *MemoryLedger) Len(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.order)), nil
}

// MemoryLocker is an in-process Locker whose hold expires after ttl.
type MemoryLocker struct {
	mu      sync.Mutex
	now     Clock
	ttl     time.Duration
	token   string
	expires time.Time
}

// NewMemoryLocker creates a MemoryLocker. A non-positive ttl never expires.
func NewMemoryLocker(ttl time.Duration, now Clock) *MemoryLocker {
	if now == nil {
		now = time.Now
	}
	return &MemoryLocker{now: now, ttl: ttl}
}

func (l *MemoryLocker) TryLock(_ context.Context) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != "" && (l.expires.IsZero() || l.now().Before(l.expires)) {
		return nil, false, nil
	}

	token := uuid.NewString()
	l.token = token
	l.expires = time.Time{}
	if l.ttl > 0 {
		l.expires = l.now().Add(l.ttl)
	}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.token != token {
			return ErrLockNotHeld
		}
		l.token = ""
		return nil
	}, true, nil
}
