package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pilo_plug/internal/device"
	"pilo_plug/internal/metrics"
	"pilo_plug/internal/models"
)

// collectorDeviceStub satisfies DeviceClient.
type collectorDeviceStub struct {
	mu     sync.Mutex
	fs     device.FullStatus
	err    error
	health models.DeviceHealth
	calls  atomic.Int32
	url    string
}

func (s *collectorDeviceStub) GetFullStatus(ctx context.Context) (device.FullStatus, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs, s.err
}

func (s *collectorDeviceStub) HealthCheck(ctx context.Context) models.DeviceHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

func (s *collectorDeviceStub) UpdateDeviceURL(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = raw
	return nil
}

func (s *collectorDeviceStub) set(fs device.FullStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fs, s.err = fs, err
}

// sampleRepoStub satisfies repository.SampleRepo.
// blockingDevice parks every GetFullStatus until release fires or ctx ends.
type blockingDevice struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingDevice() *blockingDevice {
	return &blockingDevice{entered: make(chan struct{}), release: make(chan struct{})}
}

func (d *blockingDevice) GetFullStatus(ctx context.Context) (device.FullStatus, error) {
	d.calls.Add(1)
	d.entered <- struct{}{}
	select {
	case <-d.release:
		return okStatus(), nil
	case <-ctx.Done():
		return device.FullStatus{}, ctx.Err()
	}
}

func (d *blockingDevice) HealthCheck(ctx context.Context) models.DeviceHealth {
	return models.DeviceHealth{Status: models.StatusHealthy}
}

func (d *blockingDevice) UpdateDeviceURL(string) error { return nil }

type sampleRepoStub struct {
	mu        sync.Mutex
	appended  []models.Sample
	appendErr error

	hourlyCalls int
	hourly      []models.HourlyAverage
	hourlyErr   error

	summarySince time.Time
	summary      models.PeriodSummary

	deleted   int64
	deleteErr error
	deleteArg int
}

func (s *sampleRepoStub) Append(ctx context.Context, smp models.Sample) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	s.appended = append(s.appended, smp)
	return int64(len(s.appended)), nil
}

func (s *sampleRepoStub) QueryRecent(ctx context.Context, hours, limit int) ([]models.Sample, error) {
	return nil, nil
}

func (s *sampleRepoStub) QueryHourlyAverages(ctx context.Context, days int) ([]models.HourlyAverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hourlyCalls++
	return s.hourly, s.hourlyErr
}

func (s *sampleRepoStub) QueryDailySummary(ctx context.Context, days int) ([]models.DailySummary, error) {
	return nil, nil
}

func (s *sampleRepoStub) Latest(ctx context.Context) (models.Sample, error) {
	return models.Sample{}, nil
}

func (s *sampleRepoStub) Summary(ctx context.Context, since time.Time) (models.PeriodSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summarySince = since
	return s.summary, nil
}

func (s *sampleRepoStub) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteArg = days
	return s.deleted, s.deleteErr
}

func (s *sampleRepoStub) appendedCopy() []models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Sample(nil), s.appended...)
}

// deviceRepoStub satisfies repository.DeviceRepo.
type deviceRepoStub struct {
	mu       sync.Mutex
	upserted []models.DeviceRecord
	err      error
}

func (s *deviceRepoStub) Upsert(ctx context.Context, d models.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, d)
	return nil
}

func (s *deviceRepoStub) Get(ctx context.Context, id string) (models.DeviceRecord, error) {
	return models.DeviceRecord{}, nil
}

// fakeTicker is fired by hand.
type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

// tickerFactory records every ticker it hands out.
type tickerFactory struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *tickerFactory) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 4)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *tickerFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// schedulerStub satisfies Scheduler.
type schedulerStub struct {
	starts, stops atomic.Int32
}

func (s *schedulerStub) Start() error { s.starts.Add(1); return nil }
func (s *schedulerStub) Stop()        { s.stops.Add(1) }

// recorderStub counts the calls the service package makes.
type recorderStub struct {
	metrics.Noop
	deleted           atomic.Int64
	retentionFailures atomic.Int32
	hits, misses      atomic.Int32
	collections       atomic.Int32
}

func (r *recorderStub) AddRetentionDeleted(n int64)           { r.deleted.Add(n) }
func (r *recorderStub) IncRetentionFailures()                 { r.retentionFailures.Add(1) }
func (r *recorderStub) IncCacheHits()                         { r.hits.Add(1) }
func (r *recorderStub) IncCacheMisses()                       { r.misses.Add(1) }
func (r *recorderStub) ObserveCollection(time.Duration, bool) { r.collections.Add(1) }

// storeRepoStub satisfies repository.StoreRepo.
type storeRepoStub struct {
	pingErr error
	tables  []models.TableStats
}

func (s *storeRepoStub) Ping(ctx context.Context) error { return s.pingErr }

func (s *storeRepoStub) TableStats(ctx context.Context) ([]models.TableStats, error) {
	return s.tables, nil
}
