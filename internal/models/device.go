package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeviceInfo is the document returned by the plug's info endpoint.
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	ProductType     string `json:"product_type,omitempty"`
	Serial          string `json:"serial"`
	FirmwareVersion string `json:"firmware_version"`
	APIVersion      string `json:"api_version"`
}

// Measurement is the live electrical reading of the plug. Any field may be
// absent on the wire, hence the nullable decimals.
type Measurement struct {
	ActivePowerW         decimal.NullDecimal `json:"active_power_w"`
	VoltageV             decimal.NullDecimal `json:"voltage_v"`
	CurrentA             decimal.NullDecimal `json:"current_a"`
	FrequencyHz          decimal.NullDecimal `json:"frequency_hz"`
	TotalEnergyImportKWh decimal.NullDecimal `json:"total_energy_import_kwh"`
}

// DeviceState is the switchable state of the plug.
type DeviceState struct {
	PowerOn    bool `json:"power_on"`
	SwitchLock bool `json:"switch_lock"`
	Brightness *int `json:"brightness,omitempty"`
}

// StatePatch is a partial state update. Nil fields are left out of the
// payload so the device keeps its current value for them.
type StatePatch struct {
	PowerOn    *bool `json:"power_on,omitempty"`
	SwitchLock *bool `json:"switch_lock,omitempty"`
	Brightness *int  `json:"brightness,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p StatePatch) Empty() bool {
	return p.PowerOn == nil && p.SwitchLock == nil && p.Brightness == nil
}

// DeviceRecord is the persisted metadata row of a plug (one per device_id).
type DeviceRecord struct {
	DeviceID        string    `json:"device_id"`
	ProductName     string    `json:"product_name"`
	Serial          string    `json:"serial"`
	FirmwareVersion string    `json:"firmware_version"`
	APIVersion      string    `json:"api_version"`
	LastSeen        time.Time `json:"last_seen"`
}

// NewDeviceRecord builds the metadata row for deviceID from a fresh info document.
func NewDeviceRecord(deviceID string, info DeviceInfo, seen time.Time) DeviceRecord {
	return DeviceRecord{
		DeviceID:        deviceID,
		ProductName:     info.ProductName,
		Serial:          info.Serial,
		FirmwareVersion: info.FirmwareVersion,
		APIVersion:      info.APIVersion,
		LastSeen:        seen.UTC(),
	}
}
