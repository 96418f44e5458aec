// Package features computes the per-symbol technical and liquidity features
// the scoring engine consumes, as pure functions of an Enriched Symbol plus
// its trailing daily bars.
package features

import (
	"github.com/mikedmote52/amc-discovery/internal/domain"
)

// Bars is the trailing daily window used by the calculator, oldest first.
type Bars struct {
	Closes  []float64
	Highs   []float64
	Lows    []float64
	Volumes []float64
}

// Calculator computes derived features for one symbol.
type Calculator struct{}

// NewCalculator builds a feature Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// IntradayRelVol computes session_volume / (avg_volume_20d * tod_curve[hour]).
// Unknown avg_volume_20d propagates as unknown rather than defaulting to 1.0.
func (c *Calculator) IntradayRelVol(sessionVolume int64, avgVolume20d domain.Unknown[int64], hour int) domain.Unknown[float64] {
	avg, ok := avgVolume20d.Get()
	if !ok || avg <= 0 {
		return domain.UnknownValue[float64]()
	}
	expected := float64(avg) * TODMultiplier(hour)
	if expected <= 0 {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(float64(sessionVolume) / expected)
}

// FloatRotationPct computes 100 * session_volume / float_shares.
func (c *Calculator) FloatRotationPct(sessionVolume int64, floatShares domain.Unknown[int64]) domain.Unknown[float64] {
	f, ok := floatShares.Get()
	if !ok || f <= 0 {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(100 * float64(sessionVolume) / float64(f))
}

// FrictionIndex combines short-sale friction metrics with capped linear
// scaling. Unknown components reduce the weight denominator instead of
// contributing zero.
func (c *Calculator) FrictionIndex(shortInterestPct, borrowFeePct, utilizationPct domain.Unknown[float64]) domain.Unknown[float64] {
	type component struct {
		v      domain.Unknown[float64]
		weight float64
		cap    float64
	}
	components := []component{
		{shortInterestPct, 0.5, 40},
		{borrowFeePct, 0.3, 50},
		{utilizationPct, 0.2, 100},
	}

	var weightedSum, weightUsed float64
	for _, comp := range components {
		v, ok := comp.v.Get()
		if !ok {
			continue
		}
		norm := v / comp.cap
		if norm > 1 {
			norm = 1
		}
		if norm < 0 {
			norm = 0
		}
		weightedSum += comp.weight * norm
		weightUsed += comp.weight
	}
	if weightUsed == 0 {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(weightedSum / weightUsed)
}

// EMA computes an n-period exponential moving average over closes, returning
// unknown when there is insufficient history.
func (c *Calculator) EMA(closes []float64, n int) domain.Unknown[float64] {
	if len(closes) < n {
		return domain.UnknownValue[float64]()
	}
	k := 2.0 / float64(n+1)
	ema := sma(closes[:n])
	for _, price := range closes[n:] {
		ema = price*k + ema*(1-k)
	}
	return domain.Known(ema)
}

func sma(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// RSI14 computes the 14-period relative strength index over closes.
func (c *Calculator) RSI14(closes []float64) domain.Unknown[float64] {
	const n = 14
	if len(closes) < n+1 {
		return domain.UnknownValue[float64]()
	}
	var gainSum, lossSum float64
	for i := 1; i <= n; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain, avgLoss := gainSum/n, lossSum/n
	for i := n + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
	}
	if avgLoss == 0 {
		return domain.Known(100.0)
	}
	rs := avgGain / avgLoss
	return domain.Known(100 - 100/(1+rs))
}

// ATRPct computes the 14-period average true range as a percentage of the
// latest close.
func (c *Calculator) ATRPct(highs, lows, closes []float64) domain.Unknown[float64] {
	const n = 14
	if len(closes) < n+1 {
		return domain.UnknownValue[float64]()
	}
	trueRanges := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		highLow := highs[i] - lows[i]
		highClose := abs(highs[i] - closes[i-1])
		lowClose := abs(lows[i] - closes[i-1])
		tr := highLow
		if highClose > tr {
			tr = highClose
		}
		if lowClose > tr {
			tr = lowClose
		}
		trueRanges = append(trueRanges, tr)
	}
	window := trueRanges
	if len(window) > n {
		window = window[len(window)-n:]
	}
	atr := sma(window)
	last := closes[len(closes)-1]
	if last == 0 {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(100 * atr / last)
}

// ATRPctMean10d computes the trailing 10-day mean of the daily ATR%, used
// as the baseline for the volume_momentum ATR-expansion sub-feature.
func (c *Calculator) ATRPctMean10d(highs, lows, closes []float64) domain.Unknown[float64] {
	const window = 10
	const atrWindow = 14
	need := window + atrWindow
	if len(closes) < need+1 {
		return domain.UnknownValue[float64]()
	}
	var sum float64
	count := 0
	for end := len(closes) - window; end < len(closes); end++ {
		v := c.ATRPct(highs[:end+1], lows[:end+1], closes[:end+1])
		if val, ok := v.Get(); ok {
			sum += val
			count++
		}
	}
	if count == 0 {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(sum / float64(count))
}

// VWAPReclaimed reports whether last price is at or above VWAP and the
// caller-supplied recentAboveStreak (the number of most recent samples
// already at/above VWAP) is positive. The orchestrator counts that streak
// over trailing daily closes; no intraday 15-minute window is applied.
func (c *Calculator) VWAPReclaimed(lastPrice float64, vwap domain.Unknown[float64], recentAboveStreak int) domain.Unknown[bool] {
	v, ok := vwap.Get()
	if !ok {
		return domain.UnknownValue[bool]()
	}
	return domain.Known(lastPrice >= v && recentAboveStreak > 0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
