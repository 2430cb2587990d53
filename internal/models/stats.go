package models

import "time"

// HourlyAverage is one bucket of the hourly power aggregate.
type HourlyAverage struct {
	Hour        string  `json:"hour"` // "YYYY-MM-DD HH:00:00" UTC
	AvgPowerW   float64 `json:"avg_power"`
	MinPowerW   float64 `json:"min_power"`
	MaxPowerW   float64 `json:"max_power"`
	SampleCount int64   `json:"sample_count"`
}

// DailySummary is one day of the daily power aggregate.
type DailySummary struct {
	Date          string  `json:"date"` // "YYYY-MM-DD" UTC
	AvgPowerW     float64 `json:"avg_power"`
	MinPowerW     float64 `json:"min_power"`
	MaxPowerW     float64 `json:"max_power"`
	SampleCount   int64   `json:"sample_count"`
	UptimePercent float64 `json:"uptime_percent"`
}

// PeriodSummary aggregates every sample of a trailing period.
type PeriodSummary struct {
	TotalMeasurements int64      `json:"total_measurements"`
	AvgPowerW         *float64   `json:"avg_power"`
	MinPowerW         *float64   `json:"min_power"`
	MaxPowerW         *float64   `json:"max_power"`
	FirstMeasurement  *time.Time `json:"first_measurement"`
	LastMeasurement   *time.Time `json:"last_measurement"`
	UptimePercent     *float64   `json:"uptime_percent"`
}

// TableStats describes the size of one store table.
type TableStats struct {
	Table  string     `json:"table"`
	Rows   int64      `json:"rows"`
	Oldest *time.Time `json:"oldest,omitempty"`
	Newest *time.Time `json:"newest,omitempty"`
}
