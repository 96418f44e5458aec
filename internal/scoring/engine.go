// Package scoring computes the six AlphaStack 4.1 sub-scores, the weighted
// composite with renormalization on unknown buckets, and tier assignment.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/mikedmote52/amc-discovery/internal/regime"
)

// minConfidence is the drop threshold from §4.5 step 5: discard anything
// whose confidence falls below this.
const minConfidence = 0.5

// Engine scores Enriched Symbols into Candidates.
type Engine struct{}

// NewEngine builds a scoring Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Scored is one symbol's sub-scores, composite, and confidence, prior to
// tier assignment (which also depends on run-level staleness).
type Scored struct {
	Symbol         domain.EnrichedSymbol
	SubScores      domain.SubScores
	CompositeScore float64
	Confidence     float64
	Reasons        []string
}

// Score computes one symbol's sub-scores and weighted composite.
func (e *Engine) Score(sym domain.EnrichedSymbol, weights domain.StrategyWeights, band regime.RSIBand) Scored {
	sub := domain.SubScores{
		VolumeMomentum: VolumeMomentum(VolumeMomentumInputs{
			IntradayRelVol:    sym.IntradayRelVol,
			ConsecutiveUpDays: sym.ConsecutiveUpDays,
			VWAPReclaimed:     sym.VWAPReclaimed,
			ATRPct:            sym.ATRPct,
			ATRPctMean10d:     sym.ATRPctMean10d,
		}),
		Squeeze: Squeeze(SqueezeInputs{
			FloatRotationPct: sym.FloatRotationPct,
			FrictionIndex:    sym.FrictionIndex,
			FloatShares:      sym.FloatShares,
		}),
		Catalyst: Catalyst(CatalystInputs{
			Strength:       sym.CatalystStrength,
			AgeHours:       sym.CatalystAgeHours,
			SourceVerified: sym.CatalystSourceVerified,
		}),
		Sentiment: Sentiment(sym.SentimentZScore),
		Options: Options(OptionsInputs{
			CallPutRatio: sym.CallPutRatio,
			IVPercentile: sym.IVPercentile,
		}),
		Technical: Technical(TechnicalInputs{
			RSI14:       sym.RSI14,
			EMA9:        sym.EMA9,
			EMA20:       sym.EMA20,
			RSIBandLow:  band.Low,
			RSIBandHigh: band.High,
		}),
	}

	composite, confidence := Composite(sub, weights)
	reasons := BuildReasons(sym, sub)

	return Scored{
		Symbol:         sym,
		SubScores:      sub,
		CompositeScore: composite,
		Confidence:     confidence,
		Reasons:        reasons,
	}
}

// Composite computes the weighted composite over known buckets with weights
// renormalized to the known subset, plus the confidence fraction (fraction
// of total weight that was known).
func Composite(sub domain.SubScores, weights domain.StrategyWeights) (composite float64, confidence float64) {
	type bucket struct {
		value  domain.Unknown[float64]
		weight float64
	}
	buckets := []bucket{
		{sub.VolumeMomentum, weights.VolumeMomentum},
		{sub.Squeeze, weights.Squeeze},
		{sub.Catalyst, weights.Catalyst},
		{sub.Sentiment, weights.Sentiment},
		{sub.Options, weights.Options},
		{sub.Technical, weights.Technical},
	}

	var totalWeight, knownWeight, weightedSum float64
	for _, b := range buckets {
		totalWeight += b.weight
		if v, ok := b.value.Get(); ok {
			knownWeight += b.weight
			weightedSum += b.weight * v
		}
	}
	if totalWeight == 0 {
		return 0, 0
	}
	confidence = knownWeight / totalWeight
	if knownWeight == 0 {
		return 0, confidence
	}
	raw := weightedSum / knownWeight
	return math.Round(raw*10) / 10, confidence
}

// Underconfident reports whether a scored symbol's confidence falls below
// the per-symbol drop threshold.
func (s Scored) Underconfident() bool {
	return s.Confidence < minConfidence
}

// BuildReasons emits up to 5 short machine-readable strings describing why a
// candidate scored the way it did, one per known input; there is no minimum
// count, so a symbol with few known inputs gets fewer than 2 (or none).
func BuildReasons(sym domain.EnrichedSymbol, sub domain.SubScores) []string {
	var reasons []string

	if v, ok := sym.IntradayRelVol.Get(); ok {
		reasons = append(reasons, fmt.Sprintf("relvol:%.1fx", v))
	}
	if v, ok := sym.FloatRotationPct.Get(); ok {
		reasons = append(reasons, fmt.Sprintf("float_rotation:%.0f%%", v))
	}
	if v, ok := sym.CatalystStrength.Get(); ok && v > 0 {
		verified := "unverified"
		if sym.CatalystSourceVerified {
			verified = "verified"
		}
		reasons = append(reasons, fmt.Sprintf("catalyst:%s", verified))
	}
	if v, ok := sym.ShortInterestPct.Get(); ok && v > 0 {
		reasons = append(reasons, fmt.Sprintf("short_interest:%.1f%%", v))
	}
	if v, ok := sym.RSI14.Get(); ok {
		reasons = append(reasons, fmt.Sprintf("rsi14:%.0f", v))
	}

	if len(reasons) > 5 {
		reasons = reasons[:5]
	}
	return reasons
}

// Tag assigns an action tier given the composite score, tier thresholds, and
// whether the run's data was flagged stale (caps at monitor).
func Tag(composite float64, tiers domain.TierThresholds, stale bool) domain.ActionTag {
	if stale {
		return domain.TagMonitor
	}
	switch {
	case composite >= tiers.TradeReady:
		return domain.TagTradeReady
	case composite >= tiers.Watchlist:
		return domain.TagWatchlist
	default:
		return domain.TagMonitor
	}
}

// SortCandidates orders candidates by composite desc, ties broken by
// (intraday_relvol desc, volume_momentum desc, price asc).
func SortCandidates(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.IntradayRelVol != b.IntradayRelVol {
			return a.IntradayRelVol > b.IntradayRelVol
		}
		if a.VolumeMomentumScore != b.VolumeMomentumScore {
			return a.VolumeMomentumScore > b.VolumeMomentumScore
		}
		return a.Price < b.Price
	})
}

// ElasticWatchlistThreshold lowers the watchlist threshold (never below the
// monitor boundary of 0, and never touching hard guards) until at least
// floor candidates are tagged at least watchlist/monitor-eligible, or the
// minimum is reached.
func ElasticWatchlistThreshold(scores []float64, tiers domain.TierThresholds, floor int) float64 {
	if floor <= 0 || len(scores) <= 0 {
		return tiers.Watchlist
	}
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	if floor > len(sorted) {
		floor = len(sorted)
	}
	candidateThreshold := sorted[floor-1]
	if candidateThreshold < tiers.Watchlist {
		return candidateThreshold
	}
	return tiers.Watchlist
}
