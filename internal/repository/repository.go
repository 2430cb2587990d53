package repository

import (
	"context"
	"database/sql"
	"time"

	"pilo_plug/internal/models"
)

type SampleRepo interface {
	Append(ctx context.Context, s models.Sample) (int64, error)
	QueryRecent(ctx context.Context, hours, limit int) ([]models.Sample, error)
	QueryHourlyAverages(ctx context.Context, days int) ([]models.HourlyAverage, error)
	QueryDailySummary(ctx context.Context, days int) ([]models.DailySummary, error)
	Latest(ctx context.Context) (models.Sample, error)
	Summary(ctx context.Context, since time.Time) (models.PeriodSummary, error)
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

type DeviceRepo interface {
	Upsert(ctx context.Context, d models.DeviceRecord) error
	Get(ctx context.Context, deviceID string) (models.DeviceRecord, error)
}

type StoreRepo interface {
	Ping(ctx context.Context) error
	TableStats(ctx context.Context) ([]models.TableStats, error)
}

type Repository struct {
	Samples SampleRepo
	Devices DeviceRepo
	Store   StoreRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Samples: NewSampleSQLite(db),
		Devices: NewDeviceSQLite(db),
		Store:   NewStoreSQLite(db),
	}
}
