package service

import (
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"pilo_plug/internal/logger"
	"pilo_plug/internal/metrics"
)

const retentionRunTimeout = 5 * time.Minute

// SampleDeleter is the retention contract of the stats store.
type SampleDeleter interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// dailyAt fires once a day at hour:minute wall-clock time in loc. It
// satisfies gron.Schedule.
type dailyAt struct {
	hour, minute int
	loc          *time.Location
}

func (d dailyAt) Next(t time.Time) time.Time {
	lt := t.In(d.loc)
	next := time.Date(lt.Year(), lt.Month(), lt.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(lt) {
		next = time.Date(lt.Year(), lt.Month(), lt.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

// RetentionScheduler deletes old samples once a day. Its schedule is
// independent of the polling interval.
type RetentionScheduler struct {
	store    SampleDeleter
	days     int
	schedule gron.Schedule
	log      *logger.Logger
	rec      metrics.Recorder

	mu   sync.Mutex
	cron *gron.Cron
}

func NewRetentionScheduler(store SampleDeleter, days, hour, minute int, loc *time.Location, log *logger.Logger, rec metrics.Recorder) *RetentionScheduler {
	if loc == nil {
		loc = time.Local
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &RetentionScheduler{
		store:    store,
		days:     days,
		schedule: dailyAt{hour: hour, minute: minute, loc: loc},
		log:      log,
		rec:      rec,
	}
}

// Start arms the daily job. Starting an armed scheduler is a no-op.
func (r *RetentionScheduler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}

	r.cron = gron.New()
	r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), retentionRunTimeout)
		defer cancel()
		_, _ = r.RunOnce(ctx)
	})
	r.cron.Start()

	r.log.Infow("retention_scheduled", "retention_days", r.days, "next_run", r.NextRun(time.Now()))
	return nil
}

func (r *RetentionScheduler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron == nil {
		return
	}
	r.cron.Stop()
	r.cron = nil
}

// RunOnce performs one cleanup. Failures are logged and returned; they do
// not affect the schedule.
func (r *RetentionScheduler) RunOnce(ctx context.Context) (int64, error) {
	r.log.Infow("retention_cleanup_started", "retention_days", r.days)
	n, err := r.store.DeleteOlderThan(ctx, r.days)
	if err != nil {
		r.rec.IncRetentionFailures()
		r.log.Errorw("retention_cleanup_failed", "err", err)
		return 0, err
	}
	r.rec.AddRetentionDeleted(n)
	r.log.Infow("retention_cleanup_done", "deleted", n)
	return n, nil
}

// NextRun is the first fire time strictly after now.
func (r *RetentionScheduler) NextRun(now time.Time) time.Time {
	return r.schedule.Next(now)
}

func (r *RetentionScheduler) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cron != nil
}
