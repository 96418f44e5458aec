package scoring

import (
	"math"

	"github.com/mikedmote52/amc-discovery/internal/domain"
)

var relvolPoints = []point{{1.0, 0}, {2.5, 60}, {5, 85}, {10, 100}}
var upDayPoints = []point{{0, 0}, {5, 100}}
var atrExpansionPoints = []point{{0, 0}, {50, 100}}
var floatRotationPoints = []point{{0, 0}, {100, 100}}
var floatSizePoints = []point{{20_000_000, 100}, {200_000_000, 0}}
var callPutPoints = []point{{1.0, 0}, {3.0, 100}}
var ivPercentilePoints = []point{{0, 0}, {95, 100}}

// VolumeMomentumInputs feeds the volume_momentum sub-score.
type VolumeMomentumInputs struct {
	IntradayRelVol    domain.Unknown[float64]
	ConsecutiveUpDays domain.Unknown[int]
	VWAPReclaimed     domain.Unknown[bool]
	ATRPct            domain.Unknown[float64]
	ATRPctMean10d     domain.Unknown[float64]
}

// VolumeMomentum computes the 40/30/20/10 weighted volume_momentum bucket.
func VolumeMomentum(in VolumeMomentumInputs) domain.Unknown[float64] {
	relvolScore := mapUnknown(in.IntradayRelVol, func(v float64) float64 {
		return piecewiseLinear(v, relvolPoints)
	})
	upDayScore := mapUnknownInt(in.ConsecutiveUpDays, func(v int) float64 {
		return piecewiseLinear(clamp(float64(v), 0, 5), upDayPoints)
	})
	vwapScore := boolScore(in.VWAPReclaimed)
	atrExpScore := atrExpansionScore(in.ATRPct, in.ATRPctMean10d)

	score, known := combine([]component{
		{relvolScore, 0.40},
		{upDayScore, 0.30},
		{vwapScore, 0.20},
		{atrExpScore, 0.10},
	})
	if !known {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(score)
}

func atrExpansionScore(atrPct, atrMean domain.Unknown[float64]) domain.Unknown[float64] {
	a, aok := atrPct.Get()
	m, mok := atrMean.Get()
	if !aok || !mok || m == 0 {
		return domain.UnknownValue[float64]()
	}
	expansionPct := (a/m - 1) * 100
	return domain.Known(piecewiseLinear(clamp(expansionPct, 0, 50), atrExpansionPoints))
}

// SqueezeInputs feeds the squeeze sub-score.
type SqueezeInputs struct {
	FloatRotationPct domain.Unknown[float64]
	FrictionIndex    domain.Unknown[float64] // already normalized [0,1]
	FloatShares      domain.Unknown[int64]
}

// Squeeze computes the 35/40/25 weighted squeeze bucket.
func Squeeze(in SqueezeInputs) domain.Unknown[float64] {
	rotationScore := mapUnknown(in.FloatRotationPct, func(v float64) float64 {
		return piecewiseLinear(v, floatRotationPoints)
	})
	frictionScore := mapUnknown(in.FrictionIndex, func(v float64) float64 {
		return clamp(v*100, 0, 100)
	})
	floatSizeScore := mapUnknownInt64(in.FloatShares, func(v int64) float64 {
		return piecewiseLinear(float64(v), floatSizePoints)
	})

	score, known := combine([]component{
		{rotationScore, 0.35},
		{frictionScore, 0.40},
		{floatSizeScore, 0.25},
	})
	if !known {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(score)
}

// CatalystInputs feeds the catalyst sub-score. Both strength and age are
// required to compute decay, so either being unknown marks the bucket
// unknown rather than partially renormalizing.
type CatalystInputs struct {
	Strength       domain.Unknown[float64]
	AgeHours       domain.Unknown[float64]
	SourceVerified bool
}

// Catalyst computes raw_strength * 0.5^(age_hours/6), boosted 1.25x when
// source-verified, capped at 100.
func Catalyst(in CatalystInputs) domain.Unknown[float64] {
	strength, sok := in.Strength.Get()
	age, aok := in.AgeHours.Get()
	if !sok || !aok {
		return domain.UnknownValue[float64]()
	}
	decay := math.Pow(0.5, age/6)
	score := strength * decay
	if in.SourceVerified {
		score *= 1.25
	}
	return domain.Known(clamp(score, 0, 100))
}

// Sentiment computes 50 * (1 - exp(-|z|/2)).
func Sentiment(z domain.Unknown[float64]) domain.Unknown[float64] {
	v, ok := z.Get()
	if !ok {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(50 * (1 - math.Exp(-math.Abs(v)/2)))
}

// OptionsInputs feeds the options sub-score.
type OptionsInputs struct {
	CallPutRatio domain.Unknown[float64]
	IVPercentile domain.Unknown[float64]
}

// Options computes the 60/40 weighted options bucket.
func Options(in OptionsInputs) domain.Unknown[float64] {
	cpScore := mapUnknown(in.CallPutRatio, func(v float64) float64 {
		return piecewiseLinear(v, callPutPoints)
	})
	ivScore := mapUnknown(in.IVPercentile, func(v float64) float64 {
		return piecewiseLinear(clamp(v, 0, 95), ivPercentilePoints)
	})

	score, known := combine([]component{
		{cpScore, 0.60},
		{ivScore, 0.40},
	})
	if !known {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(score)
}

// TechnicalInputs feeds the regime-aware technical sub-score.
type TechnicalInputs struct {
	RSI14       domain.Unknown[float64]
	EMA9        domain.Unknown[float64]
	EMA20       domain.Unknown[float64]
	RSIBandLow  float64
	RSIBandHigh float64
}

// Technical computes the RSI sweet-spot band score (70%) combined with the
// EMA9>EMA20 cross boolean (30%).
func Technical(in TechnicalInputs) domain.Unknown[float64] {
	rsiScore := mapUnknown(in.RSI14, func(v float64) float64 {
		return rsiBandScore(v, in.RSIBandLow, in.RSIBandHigh)
	})
	emaCross := emaCrossScore(in.EMA9, in.EMA20)

	score, known := combine([]component{
		{rsiScore, 0.70},
		{emaCross, 0.30},
	})
	if !known {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(score)
}

func rsiBandScore(rsi, low, high float64) float64 {
	if rsi >= low && rsi <= high {
		return 100
	}
	var distance float64
	if rsi < low {
		distance = low - rsi
	} else {
		distance = rsi - high
	}
	return clamp(100-(distance/15)*100, 0, 100)
}

func emaCrossScore(ema9, ema20 domain.Unknown[float64]) domain.Unknown[float64] {
	a, aok := ema9.Get()
	b, bok := ema20.Get()
	if !aok || !bok {
		return domain.UnknownValue[float64]()
	}
	if a > b {
		return domain.Known(100.0)
	}
	return domain.Known(0.0)
}

func mapUnknown(u domain.Unknown[float64], f func(float64) float64) domain.Unknown[float64] {
	v, ok := u.Get()
	if !ok {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(f(v))
}

func mapUnknownInt(u domain.Unknown[int], f func(int) float64) domain.Unknown[float64] {
	v, ok := u.Get()
	if !ok {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(f(v))
}

func mapUnknownInt64(u domain.Unknown[int64], f func(int64) float64) domain.Unknown[float64] {
	v, ok := u.Get()
	if !ok {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(f(v))
}
