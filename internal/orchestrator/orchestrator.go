// Package orchestrator drives one discovery pipeline run: universe fetch,
// filter, enrichment, scoring, tiering, and cache publish.
package orchestrator

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/mikedmote52/amc-discovery/internal/cache"
	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/mikedmote52/amc-discovery/internal/features"
	"github.com/mikedmote52/amc-discovery/internal/marketdata"
	"github.com/mikedmote52/amc-discovery/internal/regime"
	"github.com/mikedmote52/amc-discovery/internal/scoring"
	"github.com/mikedmote52/amc-discovery/internal/universe"
	"github.com/rs/zerolog/log"
)

// Clock abstracts "now" so weekend/stale scenarios are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall-clock implementation.
var SystemClock Clock = systemClock{}

// RegimeSource supplies the indicators the regime detector votes on.
type RegimeSource interface {
	Indicators(ctx context.Context) (regime.Indicators, error)
}

// Orchestrator is constructed once at process startup from injected
// capabilities and is safe for concurrent Run calls across strategies (the
// Job Runner enforces at-most-one active run per strategy).
type Orchestrator struct {
	MarketData   *marketdata.Client
	Cache        cache.Store
	Clock        Clock
	Filter       *universe.Filter
	Features     *features.Calculator
	Scoring      *scoring.Engine
	RegimeDetect *regime.Detector
	RegimeSource RegimeSource
}

// New builds an Orchestrator from its capabilities.
func New(marketData *marketdata.Client, store cache.Store, clock Clock, filter *universe.Filter, regimeSource RegimeSource) *Orchestrator {
	if clock == nil {
		clock = SystemClock
	}
	return &Orchestrator{
		MarketData:   marketData,
		Cache:        store,
		Clock:        clock,
		Filter:       filter,
		Features:     features.NewCalculator(),
		Scoring:      scoring.NewEngine(),
		RegimeDetect: regime.NewDetector(),
		RegimeSource: regimeSource,
	}
}

const defaultRunTimeout = 300 * time.Second

// Run drives one pipeline execution for strategyID, writing stage
// transitions into the returned RunRecord as it goes.
func (o *Orchestrator) Run(ctx context.Context, runID string, cfg domain.StrategyConfig) (*domain.RunRecord, error) {
	started := o.Clock.Now()
	record := &domain.RunRecord{
		RunID:      runID,
		StrategyID: cfg.ID,
		EnqueuedAt: started,
		StartedAt:  &started,
		State:      domain.RunRunning,
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	tradingDate := marketdata.PreviousTradingDay(o.Clock.Now())
	snapshots, freshness, err := o.MarketData.FetchUniverse(ctx, tradingDate)
	if err != nil {
		return o.fail(record, domain.RunFailed, err)
	}
	record.Stages = append(record.Stages, domain.StageCount{Stage: "universe", In: len(snapshots), Out: len(snapshots)})

	names := make(map[string]string, len(snapshots))
	for _, s := range snapshots {
		if s.IssuerName != "" {
			names[s.Symbol] = s.IssuerName
		}
	}
	filterResult := o.Filter.Apply(snapshots, names, freshness)
	record.Stages = append(record.Stages, domain.StageCount{
		Stage:   "filter",
		In:      len(snapshots),
		Out:     len(filterResult.Survivors),
		Reasons: filterResult.Rejected,
	})
	record.SystemState = "HEALTHY"
	if filterResult.Stale {
		record.SystemState = "STALE"
	}

	bounded, err := o.boundForEnrichment(ctx, filterResult.Survivors, cfg.UniverseCap)
	if err != nil {
		return o.fail(record, domain.RunFailed, err)
	}
	record.Stages = append(record.Stages, domain.StageCount{Stage: "bound", In: len(filterResult.Survivors), Out: len(bounded)})

	enriched := o.enrichConcurrently(ctx, bounded, cfg.EnrichmentConcurrency)
	record.Stages = append(record.Stages, domain.StageCount{Stage: "enrich", In: len(bounded), Out: len(enriched)})

	if err := ctx.Err(); err != nil {
		return o.fail(record, domain.RunTimedOut, err)
	}

	band, err := o.regimeBand(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("regime detection unavailable, defaulting to normal band")
	}

	candidates, droppedLowConfidence := o.scoreAll(enriched, cfg, band, filterResult.Stale)
	record.Stages = append(record.Stages, domain.StageCount{
		Stage:   "score",
		In:      len(enriched),
		Out:     len(candidates),
		Reasons: map[string]int{"underconfident": droppedLowConfidence},
	})

	scoring.SortCandidates(candidates)

	if cfg.ElasticFloor > 0 {
		applyElasticFloor(candidates, cfg, filterResult.Stale)
	}

	if err := o.publish(ctx, cfg.ID, candidates); err != nil {
		return o.fail(record, domain.RunFailed, err)
	}
	record.Stages = append(record.Stages, domain.StageCount{Stage: "publish", In: len(candidates), Out: len(candidates)})

	finished := o.Clock.Now()
	record.FinishedAt = &finished
	record.State = domain.RunSucceeded
	return record, nil
}

func (o *Orchestrator) fail(record *domain.RunRecord, state domain.RunState, err error) (*domain.RunRecord, error) {
	finished := o.Clock.Now()
	record.FinishedAt = &finished
	record.State = state
	record.Error = err.Error()
	return record, err
}

// boundForEnrichment sorts survivors by a coarse relvol estimate (an
// AvgVolume20d lookup per survivor; a cache hit is local, a miss or stale row
// fetches the symbol's details upstream) and retains the top cap entries.
// This is the primary cost control from §4.5 step 3.
func (o *Orchestrator) boundForEnrichment(ctx context.Context, survivors []domain.TickerSnapshot, cap int) ([]domain.TickerSnapshot, error) {
	if cap <= 0 || len(survivors) <= cap {
		return survivors, nil
	}

	type scored struct {
		snap   domain.TickerSnapshot
		relvol float64
	}
	coarse := make([]scored, 0, len(survivors))
	hour := o.Clock.Now().Hour()
	for _, s := range survivors {
		avgVol, _ := o.MarketData.AvgVolume20d(ctx, s.Symbol)
		relvol := o.Features.IntradayRelVol(s.SessionVolume, avgVol, hour)
		v, _ := relvol.Get()
		coarse = append(coarse, scored{snap: s, relvol: v})
	}
	sort.SliceStable(coarse, func(i, j int) bool { return coarse[i].relvol > coarse[j].relvol })

	bounded := make([]domain.TickerSnapshot, 0, cap)
	for i := 0; i < cap && i < len(coarse); i++ {
		bounded = append(bounded, coarse[i].snap)
	}
	return bounded, nil
}

// enrichConcurrently fans out EnrichSymbol calls bounded by a buffered
// channel semaphore sized concurrency.
func (o *Orchestrator) enrichConcurrently(ctx context.Context, snaps []domain.TickerSnapshot, concurrency int) []domain.EnrichedSymbol {
	if concurrency <= 0 {
		concurrency = 8
	}
	sem := make(chan struct{}, concurrency)
	results := make([]domain.EnrichedSymbol, len(snaps))
	var wg sync.WaitGroup

	for i, snap := range snaps {
		wg.Add(1)
		go func(i int, snap domain.TickerSnapshot) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			details, reasons := o.MarketData.EnrichSymbol(ctx, snap.Symbol)
			results[i] = o.toEnrichedSymbol(snap, details, reasons)
		}(i, snap)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) toEnrichedSymbol(snap domain.TickerSnapshot, details marketdata.SymbolDetails, reasons []string) domain.EnrichedSymbol {
	hour := o.Clock.Now().Hour()
	avgVol, err := o.MarketData.AvgVolume20d(context.Background(), snap.Symbol)
	if err != nil {
		reasons = append(reasons, "avg_volume_20d:unavailable")
	}

	sym := domain.EnrichedSymbol{
		TickerSnapshot:         snap,
		AvgVolume20d:           avgVol,
		FloatShares:            details.FloatShares,
		ShortInterestPct:       details.ShortInterestPct,
		BorrowFeePct:           details.BorrowFeePct,
		UtilizationPct:         details.UtilizationPct,
		CallPutRatio:           details.CallPutRatio,
		IVPercentile:           details.IVPercentile,
		CatalystAgeHours:       details.CatalystAgeHours,
		CatalystStrength:       details.CatalystStrength,
		CatalystSourceVerified: details.CatalystSourceVerified,
		SentimentZScore:        details.SentimentZScore,
		EnrichmentReasons:      reasons,
	}

	sym.IntradayRelVol = o.Features.IntradayRelVol(snap.SessionVolume, avgVol, hour)
	sym.FloatRotationPct = o.Features.FloatRotationPct(snap.SessionVolume, details.FloatShares)
	sym.FrictionIndex = o.Features.FrictionIndex(details.ShortInterestPct, details.BorrowFeePct, details.UtilizationPct)
	sym.EMA9 = o.Features.EMA(details.DailyCloses, 9)
	sym.EMA20 = o.Features.EMA(details.DailyCloses, 20)
	sym.RSI14 = o.Features.RSI14(details.DailyCloses)
	sym.ATRPct = o.Features.ATRPct(details.DailyHighs, details.DailyLows, details.DailyCloses)
	sym.ATRPctMean10d = o.Features.ATRPctMean10d(details.DailyHighs, details.DailyLows, details.DailyCloses)
	sym.VWAPReclaimed = o.Features.VWAPReclaimed(snap.LastPrice, snap.VWAP, consecutiveAboveStreak(details.DailyCloses, snap.VWAP))
	sym.ConsecutiveUpDays = consecutiveUpDays(details.DailyCloses)

	return sym
}

func (o *Orchestrator) regimeBand(ctx context.Context) (regime.RSIBand, error) {
	if o.RegimeSource == nil {
		return regime.Normal.Band(), nil
	}
	ind, err := o.RegimeSource.Indicators(ctx)
	if err != nil {
		return regime.Normal.Band(), err
	}
	return o.RegimeDetect.Detect(ind).Band(), nil
}

func (o *Orchestrator) scoreAll(enriched []domain.EnrichedSymbol, cfg domain.StrategyConfig, band regime.RSIBand, stale bool) ([]domain.Candidate, int) {
	candidates := make([]domain.Candidate, 0, len(enriched))
	dropped := 0
	now := o.Clock.Now()

	for _, sym := range enriched {
		scored := o.Scoring.Score(sym, cfg.Weights, band)
		if scored.Underconfident() {
			dropped++
			continue
		}
		vmScore, _ := scored.SubScores.VolumeMomentum.Get()
		relvol, _ := sym.IntradayRelVol.Get()

		candidates = append(candidates, domain.Candidate{
			Symbol:              sym.Symbol,
			Price:               sym.LastPrice,
			CompositeScore:      scored.CompositeScore,
			SubScores:           toSubScoresJSON(scored.SubScores),
			ActionTag:           scoring.Tag(scored.CompositeScore, cfg.Tiers, stale),
			Reasons:             scored.Reasons,
			Entry:               sym.LastPrice,
			Stop:                sym.LastPrice * 0.95,
			Target1:             sym.LastPrice * 1.10,
			Target2:             sym.LastPrice * 1.20,
			ComputedAt:          now,
			StrategyID:          cfg.ID,
			Confidence:          scored.Confidence,
			IntradayRelVol:      relvol,
			VolumeMomentumScore: vmScore,
		})
	}
	return candidates, dropped
}

// applyElasticFloor lowers the watchlist threshold (never hard guards) until
// at least cfg.ElasticFloor candidates are tagged watchlist or above, when
// enough survivors exist post-filter.
func applyElasticFloor(candidates []domain.Candidate, cfg domain.StrategyConfig, stale bool) {
	if stale || len(candidates) == 0 {
		return
	}
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.CompositeScore
	}
	threshold := scoring.ElasticWatchlistThreshold(scores, cfg.Tiers, cfg.ElasticFloor)
	relaxed := cfg.Tiers
	relaxed.Watchlist = threshold
	for i := range candidates {
		candidates[i].ActionTag = scoring.Tag(candidates[i].CompositeScore, relaxed, false)
	}
}

func (o *Orchestrator) publish(ctx context.Context, strategyID string, candidates []domain.Candidate) error {
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	payload, err := json.Marshal(candidates)
	if err != nil {
		return domain.NewCacheUnavailable("marshal candidates", err)
	}
	const ttl = 600 * time.Second
	if err := o.Cache.Set(ctx, cache.StrategyKey(strategyID), payload, ttl); err != nil {
		return domain.NewCacheUnavailable("publish strategy cache", err)
	}
	if err := o.Cache.Set(ctx, cache.FallbackKey(), payload, ttl); err != nil {
		return domain.NewCacheUnavailable("publish fallback cache", err)
	}
	return nil
}

func toSubScoresJSON(sub domain.SubScores) domain.SubScoresJSON {
	out := domain.SubScoresJSON{}
	if v, ok := sub.VolumeMomentum.Get(); ok {
		out.VolumeMomentum = &v
	}
	if v, ok := sub.Squeeze.Get(); ok {
		out.Squeeze = &v
	}
	if v, ok := sub.Catalyst.Get(); ok {
		out.Catalyst = &v
	}
	if v, ok := sub.Sentiment.Get(); ok {
		out.Sentiment = &v
	}
	if v, ok := sub.Options.Get(); ok {
		out.Options = &v
	}
	if v, ok := sub.Technical.Get(); ok {
		out.Technical = &v
	}
	return out
}

func consecutiveUpDays(closes []float64) domain.Unknown[int] {
	if len(closes) < 2 {
		return domain.UnknownValue[int]()
	}
	count := 0
	for i := len(closes) - 1; i > 0; i-- {
		if closes[i] > closes[i-1] {
			count++
		} else {
			break
		}
	}
	return domain.Known(count)
}

func consecutiveAboveStreak(closes []float64, vwap domain.Unknown[float64]) int {
	v, ok := vwap.Get()
	if !ok || len(closes) == 0 {
		return 0
	}
	count := 0
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] >= v {
			count++
		} else {
			break
		}
	}
	return count
}
