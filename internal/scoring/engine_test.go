package scoring

import (
	"testing"

	"github.com/mikedmote52/amc-discovery/internal/domain"
)

func fullWeights() domain.StrategyWeights {
	return domain.StrategyWeights{
		VolumeMomentum: 0.30,
		Squeeze:        0.25,
		Catalyst:       0.20,
		Sentiment:      0.10,
		Options:        0.08,
		Technical:      0.07,
	}
}

func TestCompositeAllKnown(t *testing.T) {
	sub := domain.SubScores{
		VolumeMomentum: domain.Known(80.0),
		Squeeze:        domain.Known(60.0),
		Catalyst:       domain.Known(50.0),
		Sentiment:      domain.Known(40.0),
		Options:        domain.Known(30.0),
		Technical:      domain.Known(20.0),
	}
	composite, confidence := Composite(sub, fullWeights())
	if confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", confidence)
	}
	want := 0.30*80 + 0.25*60 + 0.20*50 + 0.10*40 + 0.08*30 + 0.07*20
	if diff := composite - want; diff > 0.05 || diff < -0.05 {
		t.Fatalf("composite = %v, want ~%v", composite, want)
	}
}

// TestCompositeRenormalizesUnknownBuckets is testable property #3: unknown
// sub-scores drop out and the remaining weights renormalize rather than
// contributing a zero.
func TestCompositeRenormalizesUnknownBuckets(t *testing.T) {
	sub := domain.SubScores{
		VolumeMomentum: domain.Known(80.0),
		Squeeze:        domain.UnknownValue[float64](),
		Catalyst:       domain.Known(50.0),
		Sentiment:      domain.UnknownValue[float64](),
		Options:        domain.UnknownValue[float64](),
		Technical:      domain.UnknownValue[float64](),
	}
	weights := fullWeights()
	composite, confidence := Composite(sub, weights)

	knownWeight := weights.VolumeMomentum + weights.Catalyst
	wantConfidence := knownWeight / weights.Sum()
	if diff := confidence - wantConfidence; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %v, want %v", confidence, wantConfidence)
	}
	want := (weights.VolumeMomentum*80 + weights.Catalyst*50) / knownWeight
	if diff := composite - want; diff > 0.05 || diff < -0.05 {
		t.Fatalf("composite = %v, want ~%v", composite, want)
	}
}

func TestCompositeAllUnknownYieldsZero(t *testing.T) {
	sub := domain.SubScores{
		VolumeMomentum: domain.UnknownValue[float64](),
		Squeeze:        domain.UnknownValue[float64](),
		Catalyst:       domain.UnknownValue[float64](),
		Sentiment:      domain.UnknownValue[float64](),
		Options:        domain.UnknownValue[float64](),
		Technical:      domain.UnknownValue[float64](),
	}
	composite, confidence := Composite(sub, fullWeights())
	if composite != 0 || confidence != 0 {
		t.Fatalf("composite, confidence = %v, %v, want 0, 0", composite, confidence)
	}
}

func TestUnderconfident(t *testing.T) {
	s := Scored{Confidence: 0.49}
	if !s.Underconfident() {
		t.Fatal("Underconfident() = false for confidence below 0.5")
	}
	s.Confidence = 0.5
	if s.Underconfident() {
		t.Fatal("Underconfident() = true for confidence at threshold")
	}
}

func TestTagCapsAtMonitorWhenStale(t *testing.T) {
	tiers := domain.TierThresholds{TradeReady: 75, Watchlist: 70}
	tag := Tag(90, tiers, true)
	if tag != domain.TagMonitor {
		t.Fatalf("Tag() = %v, want monitor when stale", tag)
	}
}

func TestTagThresholds(t *testing.T) {
	tiers := domain.TierThresholds{TradeReady: 75, Watchlist: 70}
	cases := []struct {
		score float64
		want  domain.ActionTag
	}{
		{80, domain.TagTradeReady},
		{75, domain.TagTradeReady},
		{72, domain.TagWatchlist},
		{70, domain.TagWatchlist},
		{50, domain.TagMonitor},
	}
	for _, c := range cases {
		if got := Tag(c.score, tiers, false); got != c.want {
			t.Errorf("Tag(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

// TestSortCandidatesTieBreak covers the composite->relvol->volume_momentum->price
// ordering.
func TestSortCandidatesTieBreak(t *testing.T) {
	candidates := []domain.Candidate{
		{Symbol: "A", CompositeScore: 80, IntradayRelVol: 2.0, Price: 10},
		{Symbol: "B", CompositeScore: 80, IntradayRelVol: 3.0, Price: 5},
		{Symbol: "C", CompositeScore: 90, IntradayRelVol: 1.0, Price: 1},
	}
	SortCandidates(candidates)

	if candidates[0].Symbol != "C" {
		t.Fatalf("first = %s, want C (highest composite)", candidates[0].Symbol)
	}
	if candidates[1].Symbol != "B" {
		t.Fatalf("second = %s, want B (tie broken by relvol)", candidates[1].Symbol)
	}
	if candidates[2].Symbol != "A" {
		t.Fatalf("third = %s, want A", candidates[2].Symbol)
	}
}

func TestElasticWatchlistThresholdLowersWhenSparse(t *testing.T) {
	tiers := domain.TierThresholds{TradeReady: 75, Watchlist: 70}
	scores := []float64{65, 60, 55}
	got := ElasticWatchlistThreshold(scores, tiers, 3)
	if got != 55 {
		t.Fatalf("ElasticWatchlistThreshold() = %v, want 55 (3rd highest)", got)
	}
}

func TestElasticWatchlistThresholdNeverRaisesAboveConfigured(t *testing.T) {
	tiers := domain.TierThresholds{TradeReady: 75, Watchlist: 70}
	scores := []float64{95, 90, 85}
	got := ElasticWatchlistThreshold(scores, tiers, 3)
	if got != tiers.Watchlist {
		t.Fatalf("ElasticWatchlistThreshold() = %v, want unchanged %v", got, tiers.Watchlist)
	}
}

func TestBuildReasonsCapsAtFive(t *testing.T) {
	sym := domain.EnrichedSymbol{}
	sym.IntradayRelVol = domain.Known(3.0)
	sym.FloatRotationPct = domain.Known(50.0)
	sym.CatalystStrength = domain.Known(10.0)
	sym.ShortInterestPct = domain.Known(20.0)
	sym.RSI14 = domain.Known(65.0)

	reasons := BuildReasons(sym, domain.SubScores{})
	if len(reasons) > 5 {
		t.Fatalf("len(reasons) = %d, want <= 5", len(reasons))
	}
	if len(reasons) == 0 {
		t.Fatal("expected at least one reason")
	}
}
