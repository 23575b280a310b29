package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ncobase/lamet/types"
)

// MemoryStore keeps records in process.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []types.Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) BulkInsert(_ context.Context, records []types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.nextID++
		r.ID = s.nextID
		if r.Tags != nil {
			r.Tags = r.Tags.Clone()
		}
		s.records = append(s.records, r)
	}
	return nil
}

func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, r := range s.records {
		if r.RecordedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}

func (s *MemoryStore) DescribeDeleteBefore(cutoff time.Time) string {
	return fmt.Sprintf("delete from memory where recorded_at < %s", cutoff.UTC().Format(time.RFC3339Nano))
}

func (s *MemoryStore) Query(_ context.Context, filter Filter) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Record, 0)
	for _, r := range s.records {
		if filter.match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
