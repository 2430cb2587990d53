package models

import "time"

// CollectionError is the last failure recorded by the collection service.
type CollectionError struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// CollectionStats is a point-in-time snapshot of the collection counters.
type CollectionStats struct {
	IsRunning      bool             `json:"isRunning"`
	Environment    string           `json:"environment"`
	IntervalMs     int64            `json:"interval"`
	RetentionDays  int              `json:"retentionDays"`
	Attempts       uint64           `json:"collectionsAttempted"`
	Successes      uint64           `json:"collectionsSuccessful"`
	SuccessRate    float64          `json:"successRate"` // successes/attempts in [0,1]
	LastCollection *time.Time       `json:"lastCollection"`
	LastError      *CollectionError `json:"lastError"`
	NextCollection *time.Time       `json:"nextCollection"`
	Note           string           `json:"note,omitempty"`
}
