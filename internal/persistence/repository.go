// Package persistence defines the repository contracts used by the
// infrastructure layer; concrete implementations live in postgres.
package persistence

import (
	"context"
	"time"
)

// VolumeAverage is one row of the volume_averages table.
type VolumeAverage struct {
	Symbol       string    `db:"symbol"`
	AvgVolume20d int64     `db:"avg_volume_20d"`
	AvgVolume30d *int64    `db:"avg_volume_30d"`
	LastUpdated  time.Time `db:"last_updated"`
}

// Stale reports whether this row is older than the 24h freshness bound.
func (v VolumeAverage) Stale(now time.Time) bool {
	return now.Sub(v.LastUpdated) > 24*time.Hour
}

// VolumeAverageRepo persists rolling average-volume figures per symbol.
type VolumeAverageRepo interface {
	Get(ctx context.Context, symbol string) (*VolumeAverage, error)
	Upsert(ctx context.Context, row VolumeAverage) error
}

// HealthCheck is a point-in-time health snapshot of the persistence layer.
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// Repository bundles the repositories this service depends on.
type Repository struct {
	VolumeAverages VolumeAverageRepo
}
