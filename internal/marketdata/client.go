// Package marketdata wraps the upstream grouped-bars/details provider with
// rate limiting, a circuit breaker, and bounded retries.
package marketdata

import (
	"context"
	"math/rand"
	"time"

	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/mikedmote52/amc-discovery/internal/infrastructure/providers"
	"github.com/mikedmote52/amc-discovery/internal/net/ratelimit"
	"github.com/rs/zerolog/log"
)

// SymbolDetails is the subset of an Enriched Symbol that comes from the
// per-symbol details endpoint rather than the daily snapshot.
type SymbolDetails struct {
	FloatShares            domain.Unknown[int64]
	ShortInterestPct       domain.Unknown[float64]
	BorrowFeePct           domain.Unknown[float64]
	UtilizationPct         domain.Unknown[float64]
	CallPutRatio           domain.Unknown[float64]
	IVPercentile           domain.Unknown[float64]
	CatalystAgeHours       domain.Unknown[float64]
	CatalystStrength       domain.Unknown[float64]
	CatalystSourceVerified bool
	SentimentZScore        domain.Unknown[float64]

	// DailyCloses/DailyVolumes are the trailing daily bars (oldest first)
	// the feature calculator needs for RSI/EMA/ATR and the 10-day ATR% mean.
	DailyCloses  []float64
	DailyHighs   []float64
	DailyLows    []float64
	DailyVolumes []float64
}

// Provider is the abstract upstream: a daily grouped-bars endpoint and a
// per-symbol details endpoint. Implementations translate the exchange's wire
// format; the client owns retries, rate limiting, and circuit breaking.
type Provider interface {
	FetchUniverse(ctx context.Context, tradingDate time.Time) ([]domain.TickerSnapshot, time.Time, error)
	FetchSymbolDetails(ctx context.Context, symbol string) (SymbolDetails, error)
	Host() string
}

// Client is the C1 market data client: FetchUniverse, EnrichSymbol, and
// AvgVolume20d, each shielded by a rate limiter, circuit breaker, and retry.
type Client struct {
	provider    Provider
	limiter     *ratelimit.Limiter
	breakers    *providers.Manager
	volumeCache *VolumeAverageCache
	retries     int
	baseBackoff time.Duration
}

// NewClient builds a Client. breakers must already have a breaker registered
// under providers.DefaultMarketDataBreakerConfig().Name.
func NewClient(provider Provider, limiter *ratelimit.Limiter, breakers *providers.Manager, volumeCache *VolumeAverageCache) *Client {
	return &Client{
		provider:    provider,
		limiter:     limiter,
		breakers:    breakers,
		volumeCache: volumeCache,
		retries:     3,
		baseBackoff: 250 * time.Millisecond,
	}
}

// FetchUniverse returns the day's ticker snapshots and the provider's
// freshness timestamp. Universe fetch failure is fatal to the run, so this
// does not mask the final error after retries are exhausted.
func (c *Client) FetchUniverse(ctx context.Context, tradingDate time.Time) ([]domain.TickerSnapshot, time.Time, error) {
	type result struct {
		snaps     []domain.TickerSnapshot
		freshness time.Time
	}
	res, err := c.withRetry(ctx, func(ctx context.Context) (interface{}, error) {
		snaps, freshness, err := c.provider.FetchUniverse(ctx, tradingDate)
		if err != nil {
			return nil, err
		}
		return result{snaps: snaps, freshness: freshness}, nil
	})
	if err != nil {
		return nil, time.Time{}, domain.NewProviderUnavailable("fetch universe", err)
	}
	r := res.(result)
	return r.snaps, r.freshness, nil
}

// EnrichSymbol fetches per-symbol details. It also resolves AvgVolume20d
// through the volume-average cache (warming it and recording a reason on
// failure), but the value itself is not part of the returned details; callers
// read it via AvgVolume20d. On persistent provider failure it returns a details
// struct with every field Unknown/ErrorValue rather than an error, so the
// orchestrator can record a per-symbol reason and continue.
func (c *Client) EnrichSymbol(ctx context.Context, symbol string) (SymbolDetails, []string) {
	var reasons []string

	if _, err := c.AvgVolume20d(ctx, symbol); err != nil {
		reasons = append(reasons, "avg_volume_20d:unavailable")
	}

	res, err := c.withRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return c.provider.FetchSymbolDetails(ctx, symbol)
	})
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("symbol enrichment failed, marking fields unknown")
		reasons = append(reasons, "enrichment:provider_unavailable")
		return emptyDetails(), reasons
	}
	details := res.(SymbolDetails)
	return details, reasons
}

// AvgVolume20d resolves the 20-day average volume via the cache
// (write-through on miss), refreshing rows older than 24h.
func (c *Client) AvgVolume20d(ctx context.Context, symbol string) (domain.Unknown[int64], error) {
	return c.volumeCache.Get(ctx, symbol, c.fetchAvgVolume)
}

func (c *Client) fetchAvgVolume(ctx context.Context, symbol string) (int64, error) {
	res, err := c.withRetry(ctx, func(ctx context.Context) (interface{}, error) {
		details, err := c.provider.FetchSymbolDetails(ctx, symbol)
		if err != nil {
			return nil, err
		}
		v, ok := details.avgVolumeFromBars()
		if !ok {
			return nil, domain.NewProviderUnavailable("avg volume unavailable for "+symbol, nil)
		}
		return v, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// avgVolumeFromBars derives a 20-day average from the trailing daily volumes
// when the provider doesn't report it directly.
func (d SymbolDetails) avgVolumeFromBars() (int64, bool) {
	n := len(d.DailyVolumes)
	if n == 0 {
		return 0, false
	}
	window := d.DailyVolumes
	if n > 20 {
		window = d.DailyVolumes[n-20:]
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	return int64(sum / float64(len(window))), true
}

func emptyDetails() SymbolDetails {
	return SymbolDetails{}
}

// withRetry runs fn through the rate limiter and circuit breaker with bounded
// exponential backoff: 3 attempts, base 250ms, factor 2, jitter ±25%. Only
// retries on a non-nil error; the caller's fn should return a domain error
// wrapping 5xx/timeout conditions.
func (c *Client) withRetry(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	var lastErr error
	backoff := c.baseBackoff
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := c.limiter.Wait(ctx, c.provider.Host()); err != nil {
			return nil, err
		}
		res, err := c.breakers.Execute(providers.DefaultMarketDataBreakerConfig().Name, func() (interface{}, error) {
			return fn(ctx)
		})
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt == c.retries-1 {
			break
		}
		jitter := 1 + (rand.Float64()*0.5 - 0.25)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(float64(backoff) * jitter)):
		}
		backoff *= 2
	}
	return nil, lastErr
}
