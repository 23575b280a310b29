// Package storage persists flushed metrics and serves them back.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ncobase/lamet/types"
)

// ErrNoStorage is returned when no storage connection is configured.
var ErrNoStorage = errors.New("storage: no storage configured")

// Filter selects stored records. Zero fields match everything.
type Filter struct {
	Name  string
	Kind  string
	From  *time.Time
	To    *time.Time
	Limit int
}

// Store is the durable metrics table.
type Store interface {
	// BulkInsert writes records atomically.
	BulkInsert(ctx context.Context, records []types.Record) error

	// DeleteBefore removes records with recorded_at strictly before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DescribeDeleteBefore renders the statement DeleteBefore would run.
	DescribeDeleteBefore(cutoff time.Time) string

	// Query returns matching records, newest first.
	Query(ctx context.Context, filter Filter) ([]types.Record, error)

	// Migrate installs the table and its indexes.
	Migrate(ctx context.Context) error

	Close() error
}

func (f Filter) match(r types.Record) bool {
	if f.Name != "" && r.Name != f.Name {
		return false
	}
	if f.Kind != "" && string(r.Kind) != f.Kind {
		return false
	}
	if f.From != nil && r.RecordedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && r.RecordedAt.After(*f.To) {
		return false
	}
	return true
}
