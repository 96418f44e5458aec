package scoring

import (
	"testing"

	"github.com/mikedmote52/amc-discovery/internal/domain"
)

func TestVolumeMomentumUnknownWhenRelVolMissing(t *testing.T) {
	in := VolumeMomentumInputs{
		IntradayRelVol:    domain.UnknownValue[float64](),
		ConsecutiveUpDays: domain.UnknownValue[int](),
		VWAPReclaimed:     domain.UnknownValue[bool](),
		ATRPct:            domain.UnknownValue[float64](),
		ATRPctMean10d:     domain.UnknownValue[float64](),
	}
	got := VolumeMomentum(in)
	if _, ok := got.Get(); ok {
		t.Fatal("VolumeMomentum known with every input missing")
	}
}

func TestVolumeMomentumKnownWithPartialInputs(t *testing.T) {
	in := VolumeMomentumInputs{
		IntradayRelVol:    domain.Known(3.0),
		ConsecutiveUpDays: domain.Known(3),
		VWAPReclaimed:     domain.Known(true),
		ATRPct:            domain.UnknownValue[float64](),
		ATRPctMean10d:     domain.UnknownValue[float64](),
	}
	got := VolumeMomentum(in)
	v, ok := got.Get()
	if !ok {
		t.Fatal("VolumeMomentum unknown despite 90% of weight known")
	}
	if v <= 0 {
		t.Fatalf("VolumeMomentum = %v, want > 0", v)
	}
}

func TestCatalystDecaysWithAge(t *testing.T) {
	fresh := Catalyst(CatalystInputs{Strength: domain.Known(100.0), AgeHours: domain.Known(0.0), SourceVerified: false})
	stale := Catalyst(CatalystInputs{Strength: domain.Known(100.0), AgeHours: domain.Known(12.0), SourceVerified: false})

	fv, _ := fresh.Get()
	sv, _ := stale.Get()
	if sv >= fv {
		t.Fatalf("stale catalyst score %v should be lower than fresh %v", sv, fv)
	}
}

func TestCatalystVerifiedBoost(t *testing.T) {
	unverified := Catalyst(CatalystInputs{Strength: domain.Known(60.0), AgeHours: domain.Known(0.0), SourceVerified: false})
	verified := Catalyst(CatalystInputs{Strength: domain.Known(60.0), AgeHours: domain.Known(0.0), SourceVerified: true})

	uv, _ := unverified.Get()
	vv, _ := verified.Get()
	if vv <= uv {
		t.Fatalf("verified score %v should exceed unverified %v", vv, uv)
	}
}

func TestCatalystUnknownWhenEitherInputMissing(t *testing.T) {
	got := Catalyst(CatalystInputs{Strength: domain.UnknownValue[float64](), AgeHours: domain.Known(1.0)})
	if _, ok := got.Get(); ok {
		t.Fatal("Catalyst known with missing strength")
	}
}

func TestSentimentMonotonicInAbsZ(t *testing.T) {
	low := Sentiment(domain.Known(0.5))
	high := Sentiment(domain.Known(3.0))
	lv, _ := low.Get()
	hv, _ := high.Get()
	if hv <= lv {
		t.Fatalf("sentiment(3.0) = %v should exceed sentiment(0.5) = %v", hv, lv)
	}
}

func TestTechnicalRewardsRSIInBand(t *testing.T) {
	inBand := Technical(TechnicalInputs{
		RSI14: domain.Known(65.0), EMA9: domain.Known(10.0), EMA20: domain.Known(9.0),
		RSIBandLow: 60, RSIBandHigh: 70,
	})
	outOfBand := Technical(TechnicalInputs{
		RSI14: domain.Known(20.0), EMA9: domain.Known(10.0), EMA20: domain.Known(9.0),
		RSIBandLow: 60, RSIBandHigh: 70,
	})
	iv, _ := inBand.Get()
	ov, _ := outOfBand.Get()
	if ov >= iv {
		t.Fatalf("out-of-band score %v should be lower than in-band %v", ov, iv)
	}
}

func TestEMACrossScore(t *testing.T) {
	bullish := emaCrossScore(domain.Known(10.0), domain.Known(9.0))
	bearish := emaCrossScore(domain.Known(9.0), domain.Known(10.0))
	bv, _ := bullish.Get()
	bev, _ := bearish.Get()
	if bv != 100 || bev != 0 {
		t.Fatalf("emaCrossScore bullish=%v bearish=%v, want 100/0", bv, bev)
	}
}
