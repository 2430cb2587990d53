package device

import (
	"context"
	"time"

	"pilo_plug/internal/models"
)

// Device is the capability set the rest of the bridge needs from a plug.
// RemoteDevice talks to real hardware; Simulator is an in-memory stand-in.
type Device interface {
	GetInfo(ctx context.Context) (models.DeviceInfo, error)
	GetMeasurement(ctx context.Context) (models.Measurement, error)
	GetState(ctx context.Context) (models.DeviceState, error)
	UpdateState(ctx context.Context, patch models.StatePatch) (models.DeviceState, error)
}

// Retargetable is implemented by devices whose address and deadline can be
// changed at runtime. Changes apply to the next call only.
type Retargetable interface {
	SetBaseURL(url string)
	SetTimeout(d time.Duration)
	BaseURL() string
	Timeout() time.Duration
}

// Observer receives one notification per device call. kind is empty on success.
type Observer interface {
	ObserveDeviceCall(op string, elapsed time.Duration, kind string)
}

// Operation names reported to the Observer.
const (
	OpInfo        = "info"
	OpMeasurement = "measurement"
	OpState       = "state"
	OpUpdateState = "update_state"
)
