package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pilo_plug/internal/models"
)

// StoreSQLite answers questions about the database itself.
type StoreSQLite struct {
	db *sql.DB
}

func NewStoreSQLite(db *sql.DB) *StoreSQLite { return &StoreSQLite{db: db} }

// Ping runs a trivial query; a store that cannot answer it is unhealthy.
func (r *StoreSQLite) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

var tableStatsQueries = []struct {
	table string
	query string
}{
	{"power_usage_stats", `SELECT COUNT(*), MIN(captured_at), MAX(captured_at) FROM power_usage_stats`},
	{"device_info", `SELECT COUNT(*), MIN(last_seen), MAX(last_seen) FROM device_info`},
}

// TableStats reports row counts and time span per table.
func (r *StoreSQLite) TableStats(ctx context.Context) ([]models.TableStats, error) {
	out := make([]models.TableStats, 0, len(tableStatsQueries))
	for _, q := range tableStatsQueries {
		var (
			ts             = models.TableStats{Table: q.table}
			oldest, newest sqlTime
		)
		if err := r.db.QueryRowContext(ctx, q.query).Scan(&ts.Rows, &oldest, &newest); err != nil {
			return nil, fmt.Errorf("stats for %s: %w", q.table, err)
		}
		ts.Oldest, ts.Newest = oldest.ptr(), newest.ptr()
		out = append(out, ts)
	}
	return out, nil
}
