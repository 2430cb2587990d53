package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pilo_plug/internal/config"
	"pilo_plug/internal/device"
	"pilo_plug/internal/logger"
	"pilo_plug/internal/metrics"
	"pilo_plug/internal/models"
	"pilo_plug/internal/repository"
)

const developmentNote = "Data collection disabled in development environment"

// DeviceClient is the part of the device client the collector drives.
type DeviceClient interface {
	GetFullStatus(ctx context.Context) (device.FullStatus, error)
	HealthCheck(ctx context.Context) models.DeviceHealth
	UpdateDeviceURL(rawURL string) error
}

// SamplePublisher mirrors persisted samples elsewhere. Publish must not fail
// the caller.
type SamplePublisher interface {
	Publish(ctx context.Context, s models.Sample)
}

// Scheduler is a recurring job armed and disarmed with the collector.
type Scheduler interface {
	Start() error
	Stop()
}

// Ticker abstracts time.Ticker so tests can drive cycles by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (r timeTicker) C() <-chan time.Time { return r.t.C }
func (r timeTicker) Stop()               { r.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

// CollectorConfig holds the settings the collector reads at construction.
type CollectorConfig struct {
	Env           string
	DeviceID      string
	Interval      time.Duration
	RetentionDays int
}

// Collector polls the plug on a fixed interval and persists what it gets.
// Counters live for the lifetime of the instance.
type Collector struct {
	cfg       CollectorConfig
	dev       DeviceClient
	samples   repository.SampleRepo
	devices   repository.DeviceRepo
	retention Scheduler
	sinks     SamplePublisher
	rec       metrics.Recorder
	log       *logger.Logger
	now       func() time.Time
	newTicker func(time.Duration) Ticker

	attempts  atomic.Uint64
	successes atomic.Uint64

	mu             sync.Mutex
	running        bool
	cancel         context.CancelFunc
	ticker         Ticker
	lastCollection *time.Time
	lastError      *models.CollectionError
}

type CollectorOption func(*Collector)

func WithRetention(s Scheduler) CollectorOption {
	return func(c *Collector) { c.retention = s }
}

func WithPublisher(p SamplePublisher) CollectorOption {
	return func(c *Collector) { c.sinks = p }
}

func WithRecorder(r metrics.Recorder) CollectorOption {
	return func(c *Collector) { c.rec = r }
}

func WithCollectorClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

func WithTickerFactory(f func(time.Duration) Ticker) CollectorOption {
	return func(c *Collector) { c.newTicker = f }
}

func NewCollector(cfg CollectorConfig, dev DeviceClient, samples repository.SampleRepo, devices repository.DeviceRepo, log *logger.Logger, opts ...CollectorOption) *Collector {
	if cfg.DeviceID == "" {
		cfg.DeviceID = models.DefaultDeviceID
	}
	c := &Collector{
		cfg:       cfg,
		dev:       dev,
		samples:   samples,
		devices:   devices,
		rec:       metrics.Noop{},
		log:       log,
		now:       time.Now,
		newTicker: newTimeTicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collector) development() bool { return c.cfg.Env == config.EnvDevelopment }

// Start arms the retention job and the polling loop. The loop runs one
// cycle right away, then one per interval. In development it does nothing;
// calling it while running does nothing either.
func (c *Collector) Start(ctx context.Context) error {
	if c.development() {
		c.log.Infow("collection_skipped", "reason", "development environment")
		return nil
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.log.Warnw("collection_already_running")
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	ticker := c.newTicker(c.cfg.Interval)
	c.running, c.cancel, c.ticker = true, cancel, ticker
	c.mu.Unlock()

	if c.retention != nil {
		if err := c.retention.Start(); err != nil {
			c.log.Errorw("retention_schedule_failed", "err", err)
		}
	}
	c.log.Infow("collection_started", "interval", c.cfg.Interval.String(), "retention_days", c.cfg.RetentionDays)

	go c.loop(loopCtx, ticker)
	return nil
}

// Stop cancels the ticker and the retention job. A cycle already in flight
// is not waited for and still records its result. Stop is idempotent.
func (c *Collector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.ticker.Stop()
	c.mu.Unlock()

	if c.retention != nil {
		c.retention.Stop()
	}
	c.log.Infow("collection_stopped")
}

// loop stops on ctx; cycles run on a context Stop does not cancel, bounded
// by the device client's per-call timeout.
func (c *Collector) loop(ctx context.Context, ticker Ticker) {
	cycleCtx := context.WithoutCancel(ctx)
	_ = c.collect(cycleCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			_ = c.collect(cycleCtx)
		}
	}
}

// TriggerCollection runs one cycle on demand. The caller going away does not
// abort the cycle. Its own failure is recorded in the stats, not returned.
func (c *Collector) TriggerCollection(ctx context.Context) error {
	if c.development() {
		c.log.Infow("manual_collection_skipped", "reason", "development environment")
		return nil
	}
	c.log.Infow("manual_collection_triggered")
	_ = c.collect(context.WithoutCancel(ctx))
	return nil
}

// collect is one fetch-then-persist cycle.
func (c *Collector) collect(ctx context.Context) error {
	c.attempts.Add(1)
	cycleID := uuid.NewString()
	start := c.now()

	err := c.collectOnce(ctx, cycleID)
	c.rec.ObserveCollection(c.now().Sub(start), err == nil)

	at := c.now().UTC()
	c.mu.Lock()
	if err != nil {
		c.lastError = &models.CollectionError{Timestamp: at, Message: err.Error()}
	} else {
		c.lastCollection = &at
		c.lastError = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Errorw("collection_failed", "cycle_id", cycleID, "err", err)
		return err
	}
	c.successes.Add(1)
	c.log.Debugw("collection_done", "cycle_id", cycleID,
		"successes", c.successes.Load(), "attempts", c.attempts.Load())
	return nil
}

func (c *Collector) collectOnce(ctx context.Context, cycleID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collection panicked: %v", r)
		}
	}()

	fs, err := c.dev.GetFullStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device status: %w", err)
	}
	c.logPartial(cycleID, fs.Errors)

	at := c.now().UTC()
	if fs.Info != nil {
		if err := c.devices.Upsert(ctx, models.NewDeviceRecord(c.cfg.DeviceID, *fs.Info, at)); err != nil {
			return err
		}
	}
	if fs.Measurement != nil {
		sample := models.NewSample(c.cfg.DeviceID, at, *fs.Measurement, fs.State)
		id, err := c.samples.Append(ctx, sample)
		if err != nil {
			return err
		}
		sample.ID = id
		if c.sinks != nil {
			c.sinks.Publish(ctx, sample)
		}
	}
	return nil
}

func (c *Collector) logPartial(cycleID string, errs device.StatusErrors) {
	for part, e := range map[string]*device.Error{"info": errs.Info, "data": errs.Measurement, "state": errs.State} {
		if e != nil {
			c.log.Warnw("device_call_failed", "cycle_id", cycleID, "part", part, "type", e.Kind, "err", e.Message)
		}
	}
}

// GetStats snapshots the counters.
func (c *Collector) GetStats() models.CollectionStats {
	// successes first: every success is preceded by its attempt
	successes := c.successes.Load()
	attempts := c.attempts.Load()

	c.mu.Lock()
	running := c.running
	last := c.lastCollection
	lastErr := c.lastError
	c.mu.Unlock()

	st := models.CollectionStats{
		IsRunning:      running,
		Environment:    c.cfg.Env,
		IntervalMs:     c.cfg.Interval.Milliseconds(),
		RetentionDays:  c.cfg.RetentionDays,
		Attempts:       attempts,
		Successes:      successes,
		LastCollection: last,
		LastError:      lastErr,
	}
	if attempts > 0 {
		st.SuccessRate = float64(successes) / float64(attempts)
	}
	if running && last != nil {
		next := last.Add(c.cfg.Interval)
		st.NextCollection = &next
	}
	if c.development() {
		st.Note = developmentNote
	}
	return st
}

// HealthCheck combines device health with the collection counters. In
// development the device alone decides.
func (c *Collector) HealthCheck(ctx context.Context) models.ServiceHealth {
	dh := c.dev.HealthCheck(ctx)
	st := c.GetStats()

	h := models.ServiceHealth{
		Timestamp: c.now().UTC(),
		Service:   models.ServiceDetail{IsRunning: st.IsRunning, Stats: st},
		Device:    dh,
	}
	if c.development() {
		h.Status = models.StatusFor(dh.Healthy())
		h.Service.IsRunning = false
		h.Service.Note = developmentNote
		return h
	}

	ok := st.IsRunning && dh.Healthy() && (st.Attempts == 0 || st.SuccessRate > 0.5)
	h.Status = models.StatusFor(ok)
	return h
}

// UpdateDeviceURL retargets the device client for the next cycle.
func (c *Collector) UpdateDeviceURL(rawURL string) error {
	if err := c.dev.UpdateDeviceURL(rawURL); err != nil {
		return err
	}
	c.log.Infow("device_url_updated", "url", rawURL)
	return nil
}

// IsRunning reports whether the ticker is armed.
func (c *Collector) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
