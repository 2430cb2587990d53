package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pilo_plug/internal/models"
)

// ErrNoSamples is returned when a query that expects at least one sample
// finds none.
var ErrNoSamples = errors.New("no samples recorded")

// ErrInvalidWindow is returned for non-positive hour/day windows.
var ErrInvalidWindow = errors.New("window must be positive")

// MaxRecentSamples caps QueryRecent.
const MaxRecentSamples = 1000

type SampleSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSampleSQLite(db *sql.DB) *SampleSQLite {
	return &SampleSQLite{db: db, now: time.Now}
}

// WithClock replaces the clock used to compute time windows.
func (r *SampleSQLite) WithClock(now func() time.Time) *SampleSQLite {
	r.now = now
	return r
}

const (
	sampleColumns = `id, captured_at, device_id, active_power_w, voltage_v, current_a,
		frequency_hz, total_energy_import_kwh, power_on, brightness, switch_lock`

	insertSampleSQL = `
		INSERT INTO power_usage_stats (captured_at, device_id, active_power_w, voltage_v, current_a,
			frequency_hz, total_energy_import_kwh, power_on, brightness, switch_lock)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectRecentSQL = `SELECT ` + sampleColumns + `
		FROM power_usage_stats
		WHERE captured_at >= ?
		ORDER BY captured_at DESC, id DESC
		LIMIT ?
	`

	selectLatestSQL = `SELECT ` + sampleColumns + `
		FROM power_usage_stats
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`

	selectHourlySQL = `
		SELECT strftime('%Y-%m-%d %H:00:00', captured_at) AS hour,
			AVG(active_power_w), MIN(active_power_w), MAX(active_power_w), COUNT(*)
		FROM power_usage_stats
		WHERE captured_at >= ? AND active_power_w IS NOT NULL
		GROUP BY hour
		ORDER BY hour ASC
	`

	selectDailySQL = `
		SELECT date(captured_at) AS day,
			AVG(active_power_w), MIN(active_power_w), MAX(active_power_w), COUNT(*),
			100.0 * SUM(CASE WHEN power_on THEN 1 ELSE 0 END) / COUNT(*)
		FROM power_usage_stats
		WHERE captured_at >= ? AND active_power_w IS NOT NULL
		GROUP BY day
		ORDER BY day DESC
	`

	selectSummarySQL = `
		SELECT COUNT(*), AVG(active_power_w), MIN(active_power_w), MAX(active_power_w),
			MIN(captured_at), MAX(captured_at),
			AVG(CASE WHEN power_on THEN 100.0 ELSE 0 END)
		FROM power_usage_stats
		WHERE captured_at >= ? AND active_power_w IS NOT NULL
	`

	deleteOlderThanSQL = `DELETE FROM power_usage_stats WHERE captured_at <= ?`
)

// Append inserts one sample and returns its row id. A zero CapturedAt is
// set to now and an empty DeviceID to the default device.
func (r *SampleSQLite) Append(ctx context.Context, s models.Sample) (int64, error) {
	if s.CapturedAt.IsZero() {
		s.CapturedAt = r.now()
	}
	if s.DeviceID == "" {
		s.DeviceID = models.DefaultDeviceID
	}

	res, err := r.db.ExecContext(ctx, insertSampleSQL,
		formatTS(s.CapturedAt),
		s.DeviceID,
		s.ActivePowerW,
		s.VoltageV,
		s.CurrentA,
		s.FrequencyHz,
		s.TotalEnergyImportKWh,
		s.PowerOn,
		s.Brightness,
		s.SwitchLock,
	)
	if err != nil {
		return 0, fmt.Errorf("insert sample: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// QueryRecent returns samples of the last hours, newest first, at most limit
// rows (capped at MaxRecentSamples).
func (r *SampleSQLite) QueryRecent(ctx context.Context, hours, limit int) ([]models.Sample, error) {
	if hours <= 0 {
		return nil, ErrInvalidWindow
	}
	if limit <= 0 || limit > MaxRecentSamples {
		limit = MaxRecentSamples
	}
	since := r.now().Add(-time.Duration(hours) * time.Hour)

	rows, err := r.db.QueryContext(ctx, selectRecentSQL, formatTS(since), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent samples: %w", err)
	}
	defer rows.Close()

	out := make([]models.Sample, 0, 64)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the newest sample or ErrNoSamples.
func (r *SampleSQLite) Latest(ctx context.Context) (models.Sample, error) {
	s, err := scanSample(r.db.QueryRowContext(ctx, selectLatestSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sample{}, ErrNoSamples
	}
	if err != nil {
		return models.Sample{}, fmt.Errorf("query latest sample: %w", err)
	}
	return s, nil
}

// QueryHourlyAverages buckets active power per UTC hour over the last days.
func (r *SampleSQLite) QueryHourlyAverages(ctx context.Context, days int) ([]models.HourlyAverage, error) {
	if days <= 0 {
		return nil, ErrInvalidWindow
	}
	since := r.now().AddDate(0, 0, -days)

	rows, err := r.db.QueryContext(ctx, selectHourlySQL, formatTS(since))
	if err != nil {
		return nil, fmt.Errorf("query hourly averages: %w", err)
	}
	defer rows.Close()

	var out []models.HourlyAverage
	for rows.Next() {
		var (
			h           models.HourlyAverage
			avg, lo, hi sql.NullFloat64
		)
		if err := rows.Scan(&h.Hour, &avg, &lo, &hi, &h.SampleCount); err != nil {
			return nil, err
		}
		h.AvgPowerW, h.MinPowerW, h.MaxPowerW = avg.Float64, lo.Float64, hi.Float64
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryDailySummary aggregates per UTC day over the last days, newest first.
// Uptime is the share of samples with the relay on.
func (r *SampleSQLite) QueryDailySummary(ctx context.Context, days int) ([]models.DailySummary, error) {
	if days <= 0 {
		return nil, ErrInvalidWindow
	}
	since := r.now().AddDate(0, 0, -days)

	rows, err := r.db.QueryContext(ctx, selectDailySQL, formatTS(since))
	if err != nil {
		return nil, fmt.Errorf("query daily summary: %w", err)
	}
	defer rows.Close()

	var out []models.DailySummary
	for rows.Next() {
		var (
			d                   models.DailySummary
			avg, lo, hi, uptime sql.NullFloat64
		)
		if err := rows.Scan(&d.Date, &avg, &lo, &hi, &d.SampleCount, &uptime); err != nil {
			return nil, err
		}
		d.AvgPowerW, d.MinPowerW, d.MaxPowerW = avg.Float64, lo.Float64, hi.Float64
		d.UptimePercent = uptime.Float64
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary aggregates every sample with a power reading captured at or
// after since.
func (r *SampleSQLite) Summary(ctx context.Context, since time.Time) (models.PeriodSummary, error) {
	var (
		out                 models.PeriodSummary
		avg, lo, hi, uptime sql.NullFloat64
		first, last         sqlTime
	)
	err := r.db.QueryRowContext(ctx, selectSummarySQL, formatTS(since)).
		Scan(&out.TotalMeasurements, &avg, &lo, &hi, &first, &last, &uptime)
	if err != nil {
		return models.PeriodSummary{}, fmt.Errorf("query summary: %w", err)
	}
	out.AvgPowerW = floatPtr(avg)
	out.MinPowerW = floatPtr(lo)
	out.MaxPowerW = floatPtr(hi)
	out.UptimePercent = floatPtr(uptime)
	out.FirstMeasurement = first.ptr()
	out.LastMeasurement = last.ptr()
	return out, nil
}

// DeleteOlderThan removes every sample whose age is at least days days and
// reports how many rows went.
func (r *SampleSQLite) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, ErrInvalidWindow
	}
	cutoff := r.now().AddDate(0, 0, -days)

	res, err := r.db.ExecContext(ctx, deleteOlderThanSQL, formatTS(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete samples older than %d days: %w", days, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (models.Sample, error) {
	var (
		s          models.Sample
		captured   sqlTime
		brightness sql.NullInt64
	)
	err := row.Scan(
		&s.ID,
		&captured,
		&s.DeviceID,
		&s.ActivePowerW,
		&s.VoltageV,
		&s.CurrentA,
		&s.FrequencyHz,
		&s.TotalEnergyImportKWh,
		&s.PowerOn,
		&brightness,
		&s.SwitchLock,
	)
	if err != nil {
		return models.Sample{}, err
	}
	s.CapturedAt = captured.Time
	if brightness.Valid {
		b := int(brightness.Int64)
		s.Brightness = &b
	}
	return s, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
