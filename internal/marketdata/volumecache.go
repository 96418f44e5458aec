package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/mikedmote52/amc-discovery/internal/persistence"
)

// volumeStaleAfter is the freshness bound from spec: rows older than 24h
// must be refreshed from upstream.
const volumeStaleAfter = 24 * time.Hour

// VolumeAverageCache is the read-through cache in front of the
// volume_averages table: miss or stale → upstream fetch → write-through.
// Falls back to an in-memory map when no repository is configured.
type VolumeAverageCache struct {
	repo persistence.VolumeAverageRepo

	mu  sync.RWMutex
	mem map[string]persistence.VolumeAverage
}

// NewVolumeAverageCache builds a cache backed by repo, or purely in-memory
// when repo is nil (Postgres persistence disabled).
func NewVolumeAverageCache(repo persistence.VolumeAverageRepo) *VolumeAverageCache {
	return &VolumeAverageCache{repo: repo, mem: make(map[string]persistence.VolumeAverage)}
}

// Get returns the cached average volume for symbol, refreshing via fetch on
// a cache miss or a stale row (>24h old).
func (c *VolumeAverageCache) Get(ctx context.Context, symbol string, fetch func(context.Context, string) (int64, error)) (domain.Unknown[int64], error) {
	row, err := c.read(ctx, symbol)
	if err == nil && row != nil && !row.Stale(time.Now()) {
		return domain.Known(row.AvgVolume20d), nil
	}

	v, ferr := fetch(ctx, symbol)
	if ferr != nil {
		if row != nil {
			// stale but present beats nothing: surface the stale value known;
			// the fetch error is dropped and not returned to the caller.
			return domain.Known(row.AvgVolume20d), nil
		}
		return domain.ErrorValue[int64]("avg_volume_20d:" + ferr.Error()), ferr
	}

	fresh := persistence.VolumeAverage{Symbol: symbol, AvgVolume20d: v, LastUpdated: time.Now()}
	c.write(ctx, fresh)
	return domain.Known(v), nil
}

func (c *VolumeAverageCache) read(ctx context.Context, symbol string) (*persistence.VolumeAverage, error) {
	if c.repo != nil {
		return c.repo.Get(ctx, symbol)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if row, ok := c.mem[symbol]; ok {
		return &row, nil
	}
	return nil, nil
}

func (c *VolumeAverageCache) write(ctx context.Context, row persistence.VolumeAverage) {
	if c.repo != nil {
		_ = c.repo.Upsert(ctx, row)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[row.Symbol] = row
}
