// Package db manages the optional Postgres connection backing the
// volume-average cache.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mikedmote52/amc-discovery/internal/persistence"
	"github.com/mikedmote52/amc-discovery/internal/persistence/postgres"
)

// Config holds database connection configuration.
type Config struct {
	DSN             string        `yaml:"dsn" env:"PG_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"PG_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"PG_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"PG_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"PG_CONN_MAX_IDLE_TIME"`
	QueryTimeout    time.Duration `yaml:"query_timeout" env:"PG_QUERY_TIMEOUT"`
	Enabled         bool          `yaml:"enabled" env:"PG_ENABLED"`
}

// DefaultConfig returns sane pool defaults. Persistence is off by default;
// the in-memory volume-average fallback takes over when disabled.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		QueryTimeout:    5 * time.Second,
		Enabled:         false,
	}
}

// Manager owns the Postgres connection and the repositories built on it.
type Manager struct {
	db     *sqlx.DB
	config Config
	repos  *persistence.Repository
	health *healthChecker
}

// NewManager opens a Postgres connection per config, or returns a disabled
// Manager (nil repos, inert health checker) when config.Enabled is false.
func NewManager(config Config) (*Manager, error) {
	if !config.Enabled {
		return &Manager{config: config, health: &healthChecker{enabled: false}}, nil
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required when persistence is enabled")
	}

	dbx, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	dbx.SetMaxOpenConns(config.MaxOpenConns)
	dbx.SetMaxIdleConns(config.MaxIdleConns)
	dbx.SetConnMaxLifetime(config.ConnMaxLifetime)
	dbx.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dbx.PingContext(ctx); err != nil {
		dbx.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repos := &persistence.Repository{
		VolumeAverages: postgres.NewVolumeAverageRepo(dbx, config.QueryTimeout),
	}

	return &Manager{
		db:     dbx,
		config: config,
		repos:  repos,
		health: &healthChecker{enabled: true, db: dbx, timeout: config.QueryTimeout},
	}, nil
}

// Repository returns the repository collection, or nil when disabled.
func (m *Manager) Repository() *persistence.Repository {
	return m.repos
}

// Health returns the health checker.
func (m *Manager) Health(ctx context.Context) persistence.HealthCheck {
	return m.health.Health(ctx)
}

// IsEnabled reports whether Postgres persistence is active.
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled && m.db != nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

type healthChecker struct {
	enabled bool
	db      *sqlx.DB
	timeout time.Duration
}

func (h *healthChecker) Health(ctx context.Context) persistence.HealthCheck {
	if !h.enabled {
		return persistence.HealthCheck{
			Healthy:        true,
			Errors:         []string{"postgres persistence disabled, using in-memory volume averages"},
			ConnectionPool: map[string]int{"status": 0},
			LastCheck:      time.Now(),
		}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var errs []string
	healthy := true
	if err := h.db.PingContext(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("ping failed: %v", err))
		healthy = false
	}

	stats := h.db.Stats()
	pool := map[string]int{
		"max_open":      stats.MaxOpenConnections,
		"open":          stats.OpenConnections,
		"in_use":        stats.InUse,
		"idle":          stats.Idle,
		"wait_count":    int(stats.WaitCount),
		"wait_duration": int(stats.WaitDuration.Milliseconds()),
	}

	return persistence.HealthCheck{
		Healthy:        healthy,
		Errors:         errs,
		ConnectionPool: pool,
		LastCheck:      time.Now(),
		ResponseTimeMS: time.Since(start).Milliseconds(),
	}
}
