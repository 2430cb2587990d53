package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates the SQLite stats file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// one writer; the poller, retention job and HTTP reads share it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA synchronous = NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

const schemaPowerUsageStats = `
CREATE TABLE IF NOT EXISTS power_usage_stats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    captured_at TIMESTAMP NOT NULL,
    device_id TEXT NOT NULL DEFAULT 'default',
    active_power_w REAL,
    voltage_v REAL,
    current_a REAL,
    frequency_hz REAL,
    total_energy_import_kwh REAL,
    power_on BOOLEAN NOT NULL DEFAULT 0,
    brightness INTEGER CHECK (brightness IS NULL OR brightness BETWEEN 0 AND 255),
    switch_lock BOOLEAN NOT NULL DEFAULT 0
);
`

const indexPowerUsageCapturedAt = `
CREATE INDEX IF NOT EXISTS idx_power_usage_captured_at ON power_usage_stats (captured_at);
`

const indexPowerUsageDevice = `
CREATE INDEX IF NOT EXISTS idx_power_usage_device_time ON power_usage_stats (device_id, captured_at);
`

const schemaDeviceInfo = `
CREATE TABLE IF NOT EXISTS device_info (
    device_id TEXT PRIMARY KEY,
    product_name TEXT,
    serial TEXT,
    firmware_version TEXT,
    api_version TEXT,
    last_seen TIMESTAMP NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaPowerUsageStats,
		indexPowerUsageCapturedAt,
		indexPowerUsageDevice,
		schemaDeviceInfo,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
