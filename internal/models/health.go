package models

import "time"

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// StatusFor maps a boolean to a health status string.
func StatusFor(ok bool) string {
	if ok {
		return StatusHealthy
	}
	return StatusUnhealthy
}

// ComponentHealth is the health report of the database leg.
type ComponentHealth struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Healthy reports whether Status is healthy.
func (h ComponentHealth) Healthy() bool { return h.Status == StatusHealthy }

// DeviceHealth is the result of timing one info call against the plug.
// Details holds the info document on success and the classified error otherwise.
type DeviceHealth struct {
	Status         string    `json:"status"`
	ResponseTimeMs *int64    `json:"responseTime"`
	Timestamp      time.Time `json:"timestamp"`
	Details        any       `json:"details,omitempty"`
}

// Healthy reports whether Status is healthy.
func (h DeviceHealth) Healthy() bool { return h.Status == StatusHealthy }

// ServiceHealth is the collection service's view of its own health.
type ServiceHealth struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Service   ServiceDetail `json:"service"`
	Device    DeviceHealth  `json:"device"`
}

// Healthy reports whether Status is healthy.
func (h ServiceHealth) Healthy() bool { return h.Status == StatusHealthy }

// ServiceDetail is embedded in ServiceHealth.
type ServiceDetail struct {
	IsRunning bool            `json:"isRunning"`
	Stats     CollectionStats `json:"stats"`
	Note      string          `json:"note,omitempty"`
}

// HealthReport is the composite status of the whole bridge. It is built on
// every request and never cached.
type HealthReport struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version,omitempty"`
	Services  HealthServices `json:"services"`
}

// HealthServices carries the three sub-reports verbatim.
type HealthServices struct {
	Database       ComponentHealth `json:"database"`
	Device         DeviceHealth    `json:"device"`
	DataCollection ServiceHealth   `json:"dataCollection"`
}
