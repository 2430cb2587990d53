package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pilo_plug/internal/models"
)

// ErrDeviceNotFound is returned by Get for an unknown device id.
var ErrDeviceNotFound = errors.New("device not found")

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite { return &DeviceSQLite{db: db} }

const (
	upsertDeviceSQL = `
		INSERT INTO device_info (device_id, product_name, serial, firmware_version, api_version, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			product_name=excluded.product_name,
			serial=excluded.serial,
			firmware_version=excluded.firmware_version,
			api_version=excluded.api_version,
			last_seen=MAX(device_info.last_seen, excluded.last_seen)
	`

	selectDeviceSQL = `
		SELECT device_id, product_name, serial, firmware_version, api_version, last_seen
		FROM device_info WHERE device_id=?
	`
)

// Upsert records the latest metadata for a device. last_seen never moves
// backwards.
func (r *DeviceSQLite) Upsert(ctx context.Context, d models.DeviceRecord) error {
	if d.DeviceID == "" {
		d.DeviceID = models.DefaultDeviceID
	}
	seen := d.LastSeen
	if seen.IsZero() {
		seen = time.Now()
	}

	_, err := r.db.ExecContext(ctx, upsertDeviceSQL,
		d.DeviceID,
		d.ProductName,
		d.Serial,
		d.FirmwareVersion,
		d.APIVersion,
		formatTS(seen),
	)
	if err != nil {
		return fmt.Errorf("upsert device %q: %w", d.DeviceID, err)
	}
	return nil
}

func (r *DeviceSQLite) Get(ctx context.Context, deviceID string) (models.DeviceRecord, error) {
	var (
		d                     models.DeviceRecord
		seen                  sqlTime
		name, serial, fw, api sql.NullString
	)
	err := r.db.QueryRowContext(ctx, selectDeviceSQL, deviceID).
		Scan(&d.DeviceID, &name, &serial, &fw, &api, &seen)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DeviceRecord{}, ErrDeviceNotFound
	}
	if err != nil {
		return models.DeviceRecord{}, fmt.Errorf("load device %q: %w", deviceID, err)
	}
	d.ProductName, d.Serial, d.FirmwareVersion, d.APIVersion = name.String, serial.String, fw.String, api.String
	d.LastSeen = seen.Time
	return d, nil
}
