package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Device readings are plain JSON numbers; keep them that way on the way out.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultDeviceID is the device_id used when a single plug is monitored.
const DefaultDeviceID = "default"

// Sample is one timestamped measurement+state snapshot of the plug.
// Samples are immutable once written.
type Sample struct {
	ID                   int64               `json:"id,omitempty"`
	CapturedAt           time.Time           `json:"captured_at"`
	DeviceID             string              `json:"device_id"`
	ActivePowerW         decimal.NullDecimal `json:"active_power_w"`
	VoltageV             decimal.NullDecimal `json:"voltage_v"`
	CurrentA             decimal.NullDecimal `json:"current_a"`
	FrequencyHz          decimal.NullDecimal `json:"frequency_hz"`
	TotalEnergyImportKWh decimal.NullDecimal `json:"total_energy_import_kwh"`
	PowerOn              bool                `json:"power_on"`
	Brightness           *int                `json:"brightness"`
	SwitchLock           bool                `json:"switch_lock"`
}

// NewSample merges a measurement with the (optional) state document.
// A missing state yields power_on=false, brightness=null, switch_lock=false.
func NewSample(deviceID string, capturedAt time.Time, m Measurement, st *DeviceState) Sample {
	s := Sample{
		CapturedAt:           capturedAt.UTC(),
		DeviceID:             deviceID,
		ActivePowerW:         m.ActivePowerW,
		VoltageV:             m.VoltageV,
		CurrentA:             m.CurrentA,
		FrequencyHz:          m.FrequencyHz,
		TotalEnergyImportKWh: m.TotalEnergyImportKWh,
	}
	if st != nil {
		s.PowerOn = st.PowerOn
		s.SwitchLock = st.SwitchLock
		if st.Brightness != nil {
			b := *st.Brightness
			s.Brightness = &b
		}
	}
	return s
}
