package repository

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// tsLayout is the SQLite TIMESTAMP text format. All timestamps are stored
// in UTC so lexical and chronological order agree.
const tsLayout = "2006-01-02 15:04:05"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

var tsLayouts = []string{
	tsLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

// sqlTime scans a TIMESTAMP column whether the driver hands back a
// time.Time (declared columns) or raw text (aggregates such as MIN()).
type sqlTime struct {
	Time  time.Time
	Valid bool
}

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range tsLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: cannot parse %q", s)
}

func (t sqlTime) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return formatTS(t.Time), nil
}

func (t sqlTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
