package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/retention"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type job struct {
	mu       sync.Mutex
	flushes  int
	cleans   []int
	flushErr error
	// afterFlush is notified on every flush without blocking.
	afterFlush chan struct{}
}

func newJob() *job {
	return &job{afterFlush: make(chan struct{}, 64)}
}

func (j *job) Flush(context.Context) (int, error) {
	j.mu.Lock()
	j.flushes++
	err := j.flushErr
	j.mu.Unlock()
	select {
	case j.afterFlush <- struct{}{}:
	default:
	}
	return 1, err
}

func (j *job) Clean(_ context.Context, days int, _ bool) (*retention.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cleans = append(j.cleans, days)
	return &retention.Result{Deleted: 3, Cutoff: time.Now().AddDate(0, 0, -days)}, nil
}

func (j *job) counts() (int, []int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushes, append([]int(nil), j.cleans...)
}

func metricsConfig(flush, clean time.Duration, days int) *config.Metrics {
	cfg := config.Default().Metrics
	cfg.Cache.FlushInterval = flush
	cfg.Retention.Interval = clean
	cfg.Retention.Days = days
	return cfg
}

func run(t *testing.T, s *Scheduler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return cancel, done
}

func wait(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunFlushesAndCleans(t *testing.T) {
	j := newJob()
	cancel, done := run(t, New(j, metricsConfig(5*time.Millisecond, 5*time.Millisecond, 14)))

	assert.Eventually(t, func() bool {
		flushes, cleans := j.counts()
		return flushes >= 2 && len(cleans) >= 1
	}, 5*time.Second, time.Millisecond)

	cancel()
	wait(t, done)

	_, cleans := j.counts()
	for _, days := range cleans {
		assert.Equal(t, 14, days)
	}
}

func TestRunFlushesOnStop(t *testing.T) {
	j := newJob()
	cancel, done := run(t, New(j, metricsConfig(time.Hour, time.Hour, 0)))

	cancel()
	wait(t, done)

	flushes, cleans := j.counts()
	assert.Equal(t, 1, flushes)
	assert.Empty(t, cleans)
}

func TestRunSurvivesFlushErrors(t *testing.T) {
	j := newJob()
	j.flushErr = errors.New("connection refused")
	cancel, done := run(t, New(j, metricsConfig(2*time.Millisecond, time.Hour, 0)))

	for i := 0; i < 3; i++ {
		select {
		case <-j.afterFlush:
		case <-time.After(5 * time.Second):
			t.Fatal("no flush")
		}
	}

	cancel()
	wait(t, done)
}
