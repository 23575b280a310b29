// Package scheduler drives periodic flushes and retention sweeps.
package scheduler

import (
	"context"
	"time"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/logging/logger"
	"github.com/ncobase/lamet/retention"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// finalFlushTimeout bounds the flush run after the scheduler is stopped.
const finalFlushTimeout = 30 * time.Second

// Job is the work the scheduler triggers. *manager.Manager implements it.
type Job interface {
	Flush(ctx context.Context) (int, error)
	Clean(ctx context.Context, daysToKeep int, dryRun bool) (*retention.Result, error)
}

// Scheduler runs Job on fixed intervals.
type Scheduler struct {
	job        Job
	flushEvery time.Duration
	cleanEvery time.Duration
	days       int
}

// New reads the intervals from cfg. A retention of zero days disables the
// sweep.
func New(job Job, cfg *config.Metrics) *Scheduler {
	return &Scheduler{
		job:        job,
		flushEvery: cfg.Cache.FlushInterval,
		cleanEvery: cfg.Retention.Interval,
		days:       cfg.Retention.Days,
	}
}

// Run blocks until ctx ends, then flushes once more so nothing buffered
// since the last tick waits for another process.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.WithFields(ctx, logrus.Fields{
		"flush_interval": s.flushEvery.String(),
		"clean_interval": s.cleanEvery.String(),
		"retention_days": s.days,
	}).Info("scheduler started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		every(gctx, s.flushEvery, s.flush)
		return nil
	})
	if s.days > 0 {
		g.Go(func() error {
			every(gctx, s.cleanEvery, s.clean)
			return nil
		})
	}
	err := g.Wait()

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
	defer cancel()
	s.flush(fctx)

	logger.Info(ctx, "scheduler stopped")
	return err
}

func every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (s *Scheduler) flush(ctx context.Context) {
	n, err := s.job.Flush(ctx)
	if err != nil {
		logger.Errorf(ctx, "scheduled flush failed after %d metrics: %v", n, err)
		return
	}
	if n > 0 {
		logger.Debugf(ctx, "scheduled flush stored %d metrics", n)
	}
}

func (s *Scheduler) clean(ctx context.Context) {
	res, err := s.job.Clean(ctx, s.days, false)
	if err != nil {
		logger.Errorf(ctx, "scheduled clean failed: %v", err)
		return
	}
	logger.Infof(ctx, "scheduled clean removed %d metrics older than %s", res.Deleted, res.Cutoff.Format(time.RFC3339))
}
