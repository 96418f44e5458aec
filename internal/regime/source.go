package regime

import (
	"context"
	"math"

	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/mikedmote52/amc-discovery/internal/features"
)

// DailyBars is the trailing OHLC the index proxy needs. Callers adapt
// marketdata.SymbolDetails into this shape to avoid an import cycle
// (marketdata does not depend on regime).
type DailyBars struct {
	Highs  []float64
	Lows   []float64
	Closes []float64
}

// MarketSource derives SPY ATR% and a realized-volatility VIX proxy from the
// index's own trailing daily bars, rather than requiring a second named
// volatility-index ticker from the upstream provider.
type MarketSource struct {
	fetch       func(ctx context.Context) (DailyBars, error)
	indexSymbol string
	calc        *features.Calculator
}

// NewMarketSource builds a MarketSource. fetch resolves the index symbol's
// trailing daily bars (closes/highs/lows, oldest first).
func NewMarketSource(indexSymbol string, fetch func(ctx context.Context) (DailyBars, error)) *MarketSource {
	return &MarketSource{fetch: fetch, indexSymbol: indexSymbol, calc: features.NewCalculator()}
}

// Symbol reports the index ticker this source tracks.
func (s *MarketSource) Symbol() string {
	return s.indexSymbol
}

// Indicators implements orchestrator.RegimeSource.
func (s *MarketSource) Indicators(ctx context.Context) (Indicators, error) {
	bars, err := s.fetch(ctx)
	if err != nil {
		return Indicators{}, err
	}
	atrPct, ok := s.calc.ATRPct(bars.Highs, bars.Lows, bars.Closes).Get()
	if !ok {
		return Indicators{}, domain.NewPartialEnrichment(s.indexSymbol+" ATR% unavailable: insufficient trailing daily history", nil)
	}
	atrMean, ok := s.calc.ATRPctMean10d(bars.Highs, bars.Lows, bars.Closes).Get()
	if !ok {
		return Indicators{}, domain.NewPartialEnrichment(s.indexSymbol+" 10-day ATR% mean unavailable: insufficient trailing daily history", nil)
	}

	// Realized-volatility proxy for the VIX level: annualize the trailing
	// mean daily ATR% (a standard close-to-close vol-to-annualized-vol
	// scaling) rather than requiring a second quoted volatility index.
	vixProxy := atrMean * math.Sqrt(252)

	return Indicators{SPYATRPct: atrPct, VIXProxy: vixProxy}, nil
}
