// Package retention deletes stored metrics older than the retention window.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/lamet/logging/logger"
	"github.com/ncobase/lamet/storage"
	"github.com/ncobase/lamet/telemetry"
	"github.com/ncobase/lamet/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrInvalidRetention is returned for a negative number of days.
var ErrInvalidRetention = errors.New("retention: days to keep must not be negative")

// Result describes a sweep.
type Result struct {
	// Deleted is the number of removed records; zero on a dry run.
	Deleted int64
	// Statement is the delete that runs, or would run on a dry run.
	Statement string
	Cutoff    time.Time
	DryRun    bool
}

// Sweeper removes expired records from a store.
type Sweeper struct {
	store storage.Store
	tel   *telemetry.Telemetry
	now   func() time.Time
}

// New creates a Sweeper. tel may be nil; now defaults to time.Now.
func New(store storage.Store, tel *telemetry.Telemetry, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: store, tel: tel, now: now}
}

// Clean deletes records recorded strictly before now minus daysToKeep
// days. With dryRun nothing is deleted and only the statement is returned.
func (s *Sweeper) Clean(ctx context.Context, daysToKeep int, dryRun bool) (res *Result, err error) {
	if daysToKeep < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRetention, daysToKeep)
	}
	if s.store == nil {
		return nil, storage.ErrNoStorage
	}

	ctx, span := telemetry.Tracer().Start(ctx, "lamet.clean")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int64("lamet.deleted", res.Deleted), attribute.Bool("lamet.dry_run", dryRun))
		}
		span.End()
	}()

	cutoff := types.DaysAgo(s.now(), daysToKeep)
	res = &Result{
		Statement: s.store.DescribeDeleteBefore(cutoff),
		Cutoff:    cutoff,
		DryRun:    dryRun,
	}
	if dryRun {
		logger.Infof(ctx, "dry run, no metrics deleted: %s", res.Statement)
		return res, nil
	}

	res.Deleted, err = s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	s.tel.Cleaned(res.Deleted)
	logger.Infof(ctx, "cleaned %d old metrics", res.Deleted)
	return res, nil
}
