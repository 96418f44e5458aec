package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mikedmote52/amc-discovery/internal/persistence"
)

// volumeAverageRepo implements persistence.VolumeAverageRepo for Postgres.
type volumeAverageRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewVolumeAverageRepo builds a Postgres-backed volume average repository.
func NewVolumeAverageRepo(db *sqlx.DB, timeout time.Duration) persistence.VolumeAverageRepo {
	return &volumeAverageRepo{db: db, timeout: timeout}
}

// Get returns the row for symbol, or nil if absent.
func (r *volumeAverageRepo) Get(ctx context.Context, symbol string) (*persistence.VolumeAverage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT symbol, avg_volume_20d, avg_volume_30d, last_updated
		FROM volume_averages
		WHERE symbol = $1`

	var row persistence.VolumeAverage
	err := r.db.QueryRowxContext(ctx, query, symbol).StructScan(&row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get volume average for %s: %w", symbol, err)
	}
	return &row, nil
}

// Upsert inserts or refreshes the row for row.Symbol.
func (r *volumeAverageRepo) Upsert(ctx context.Context, row persistence.VolumeAverage) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if row.AvgVolume20d <= 0 {
		return fmt.Errorf("avg_volume_20d must be > 0, got %d", row.AvgVolume20d)
	}

	const query = `
		INSERT INTO volume_averages (symbol, avg_volume_20d, avg_volume_30d, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE SET
			avg_volume_20d = EXCLUDED.avg_volume_20d,
			avg_volume_30d = EXCLUDED.avg_volume_30d,
			last_updated = EXCLUDED.last_updated`

	if _, err := r.db.ExecContext(ctx, query, row.Symbol, row.AvgVolume20d, row.AvgVolume30d, row.LastUpdated); err != nil {
		return fmt.Errorf("upsert volume average for %s: %w", row.Symbol, err)
	}
	return nil
}

// Migration is the DDL for the volume_averages table, applied by operators
// before enabling Postgres persistence.
const Migration = `
CREATE TABLE IF NOT EXISTS volume_averages (
  symbol VARCHAR(16) PRIMARY KEY,
  avg_volume_20d BIGINT NOT NULL CHECK (avg_volume_20d > 0),
  avg_volume_30d BIGINT NULL,
  last_updated TIMESTAMP NOT NULL
);`
