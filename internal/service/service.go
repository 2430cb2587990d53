package service

import (
	"context"
	"time"

	"pilo_plug/internal/config"
	"pilo_plug/internal/device"
	"pilo_plug/internal/logger"
	"pilo_plug/internal/metrics"
	"pilo_plug/internal/models"
	"pilo_plug/internal/repository"
)

// Collection controls the polling loop.
type Collection interface {
	Start(ctx context.Context) error
	Stop()
	TriggerCollection(ctx context.Context) error
	GetStats() models.CollectionStats
	HealthCheck(ctx context.Context) models.ServiceHealth
	UpdateDeviceURL(rawURL string) error
}

// Stats exposes read queries over stored samples.
type Stats interface {
	Recent(ctx context.Context, hours, limit int) ([]models.Sample, error)
	Hourly(ctx context.Context, days int) ([]models.HourlyAverage, error)
	Daily(ctx context.Context, days int) ([]models.DailySummary, error)
	Latest(ctx context.Context) (models.Sample, error)
	Summary(ctx context.Context, period string) (models.PeriodSummary, error)
	DatabaseStats(ctx context.Context) ([]models.TableStats, error)
}

// Health composes the bridge-wide status.
type Health interface {
	Check(ctx context.Context) models.HealthReport
}

// Retention is the daily cleanup job.
type Retention interface {
	RunOnce(ctx context.Context) (int64, error)
	NextRun(now time.Time) time.Time
}

// DeviceControl forwards requests to the plug.
type DeviceControl interface {
	GetInfo(ctx context.Context) (models.DeviceInfo, error)
	GetMeasurement(ctx context.Context) (models.Measurement, error)
	GetState(ctx context.Context) (models.DeviceState, error)
	UpdateState(ctx context.Context, patch models.StatePatch) (models.DeviceState, error)
	SetPower(ctx context.Context, on bool) (models.DeviceState, error)
	SetBrightness(ctx context.Context, b int) (models.DeviceState, error)
	SetSwitchLock(ctx context.Context, locked bool) (models.DeviceState, error)
	GetFullStatus(ctx context.Context) (device.FullStatus, error)
	HealthCheck(ctx context.Context) models.DeviceHealth
	UpdateTimeout(d time.Duration) error
	Target() (string, time.Duration)
}

type Service struct {
	Collection Collection
	Stats      Stats
	Health     Health
	Retention  Retention
	Device     DeviceControl
}

// Deps carries what NewService wires together.
type Deps struct {
	Config    *config.Config
	Repos     *repository.Repository
	Device    *device.Client
	Publisher SamplePublisher
	Recorder  metrics.Recorder
	Log       *logger.Logger
	Location  *time.Location
}

// NewService wires the repositories and the device client into the
// concrete services.
func NewService(d Deps) *Service {
	cfg := d.Config
	if d.Recorder == nil {
		d.Recorder = metrics.Noop{}
	}
	hour, minute := cfg.CleanupClock()
	retention := NewRetentionScheduler(d.Repos.Samples, cfg.Collection.RetentionDays, hour, minute, d.Location, d.Log, d.Recorder)

	opts := []CollectorOption{WithRetention(retention), WithRecorder(d.Recorder)}
	if d.Publisher != nil {
		opts = append(opts, WithPublisher(d.Publisher))
	}
	collector := NewCollector(CollectorConfig{
		Env:           cfg.Env,
		DeviceID:      cfg.Device.ID,
		Interval:      cfg.CollectionInterval(),
		RetentionDays: cfg.Collection.RetentionDays,
	}, d.Device, d.Repos.Samples, d.Repos.Devices, d.Log, opts...)

	cache := NewQueryCache(cfg.Cache.Enabled, cfg.Cache.SizeMB, cfg.Cache.TTLSeconds)

	return &Service{
		Collection: collector,
		Stats:      NewStatsService(d.Repos.Samples, d.Repos.Store, cache, d.Recorder),
		Health:     NewHealthAggregator(d.Repos.Store, d.Device, collector, cfg.Version),
		Retention:  retention,
		Device:     d.Device,
	}
}

var (
	_ Collection    = (*Collector)(nil)
	_ Stats         = (*StatsService)(nil)
	_ Health        = (*HealthAggregator)(nil)
	_ Retention     = (*RetentionScheduler)(nil)
	_ Scheduler     = (*RetentionScheduler)(nil)
	_ DeviceControl = (*device.Client)(nil)
	_ DeviceClient  = (*device.Client)(nil)
)
