// Package universe applies the hard guards and ETP exclusion set to a daily
// ticker snapshot sequence.
package universe

import (
	"time"

	"github.com/mikedmote52/amc-discovery/internal/config"
	"github.com/mikedmote52/amc-discovery/internal/domain"
)

// MarketCalendar reports trading-session state for market-awareness checks.
type MarketCalendar interface {
	IsOpen(ts time.Time) bool
	LastClose(ts time.Time) time.Time
}

// Result is the filter's output: survivors plus a rejection histogram.
type Result struct {
	Survivors []domain.TickerSnapshot
	Rejected  map[string]int
	Stale     bool
}

// Filter applies the hard guards in §4.2: minimum price, minimum
// dollar-volume, bounded estimated spread, and ETP/fund exclusion.
type Filter struct {
	guards   domain.GuardConstants
	calendar MarketCalendar
}

// New builds a Filter with the given guard constants and market calendar.
func New(guards domain.GuardConstants, calendar MarketCalendar) *Filter {
	return &Filter{guards: guards, calendar: calendar}
}

// symbolName is supplied by the caller when the snapshot doesn't carry an
// issuer name; the orchestrator passes it through from the universe fetch
// when the upstream provider includes one, else an empty string (the
// exclusion set's ticker list still applies).
type symbolName = string

// Apply filters snapshots, returning survivors and the reason histogram.
// names maps symbol -> issuer name for the ETP name-regex check; a missing
// entry is treated as an empty name.
func (f *Filter) Apply(snapshots []domain.TickerSnapshot, names map[string]symbolName, freshness time.Time) Result {
	res := Result{Rejected: make(map[string]int)}

	for _, s := range snapshots {
		if s.LastPrice < f.guards.MinPrice {
			res.Rejected["price_below_min"]++
			continue
		}
		dollarVolume := float64(s.SessionVolume) * s.LastPrice
		if dollarVolume < f.guards.MinDollarVolume {
			res.Rejected["dollar_volume_below_min"]++
			continue
		}
		if spreadBps(s) > f.guards.MaxSpreadBps {
			res.Rejected["spread_above_max"]++
			continue
		}
		if config.IsExcludedETP(s.Symbol, names[s.Symbol]) {
			res.Rejected["etp_excluded"]++
			continue
		}
		res.Survivors = append(res.Survivors, s)
	}

	if f.calendar != nil {
		now := time.Now()
		lastClose := f.calendar.LastClose(now)
		tooOld := freshness.Before(lastClose.AddDate(0, 0, -1))
		if !f.calendar.IsOpen(now) || tooOld {
			res.Stale = true
		}
	}
	return res
}

// spreadBps proxies the bid/ask spread via the session's high/low range,
// expressed in basis points of last price.
func spreadBps(s domain.TickerSnapshot) float64 {
	if s.LastPrice <= 0 {
		return 0
	}
	return (s.SessionHigh - s.SessionLow) / s.LastPrice * 10000
}
