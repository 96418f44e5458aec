package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mikedmote52/amc-discovery/internal/domain"
)

// HTTPProvider implements Provider against a grouped-bars/details REST API
// reachable at baseURL. It is intentionally upstream-agnostic: the wire
// shapes below are the provider's JSON contract, not a specific vendor SDK.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	host    string
}

// NewHTTPProvider builds a provider client for baseURL, authenticated with
// apiKey via query parameter.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	u, _ := url.Parse(baseURL)
	host := baseURL
	if u != nil && u.Host != "" {
		host = u.Host
	}
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		host:    host,
	}
}

// Host identifies this provider for the rate limiter's per-host buckets.
func (p *HTTPProvider) Host() string {
	return p.host
}

type groupedBarsResponse struct {
	Results []struct {
		Symbol string   `json:"T"`
		Name   string   `json:"name"`
		Open   float64  `json:"o"`
		High   float64  `json:"h"`
		Low    float64  `json:"l"`
		Close  float64  `json:"c"`
		Volume int64    `json:"v"`
		VWAP   *float64 `json:"vw"`
	} `json:"results"`
	QueryTimestamp int64 `json:"queryCount"`
}

// FetchUniverse pulls the grouped daily bars for tradingDate and maps them
// to Ticker Snapshots. Freshness is "now" in the absence of a per-response
// as-of timestamp from the upstream contract.
func (p *HTTPProvider) FetchUniverse(ctx context.Context, tradingDate time.Time) ([]domain.TickerSnapshot, time.Time, error) {
	endpoint := fmt.Sprintf("%s/v2/aggs/grouped/locale/us/market/stocks/%s", p.baseURL, tradingDate.Format("2006-01-02"))
	q := url.Values{}
	if p.apiKey != "" {
		q.Set("apiKey", p.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, time.Time{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, time.Time{}, fmt.Errorf("grouped bars: upstream status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, time.Time{}, fmt.Errorf("grouped bars: unexpected status %d", resp.StatusCode)
	}

	var body groupedBarsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, time.Time{}, err
	}

	snaps := make([]domain.TickerSnapshot, 0, len(body.Results))
	for _, r := range body.Results {
		snap := domain.TickerSnapshot{
			Symbol:        r.Symbol,
			LastPrice:     r.Close,
			SessionVolume: r.Volume,
			SessionHigh:   r.High,
			SessionLow:    r.Low,
			Open:          r.Open,
			IssuerName:    r.Name,
		}
		if r.VWAP != nil {
			snap.VWAP = domain.Known(*r.VWAP)
		} else {
			snap.VWAP = domain.UnknownValue[float64]()
		}
		snaps = append(snaps, snap)
	}
	return snaps, time.Now(), nil
}

type symbolDetailsResponse struct {
	FloatShares            *int64   `json:"float_shares"`
	ShortInterestPct       *float64 `json:"short_interest_pct"`
	BorrowFeePct           *float64 `json:"borrow_fee_pct"`
	UtilizationPct         *float64 `json:"utilization_pct"`
	CallPutRatio           *float64 `json:"call_put_ratio"`
	IVPercentile           *float64 `json:"iv_percentile"`
	CatalystAgeHours       *float64 `json:"catalyst_age_hours"`
	CatalystStrength       *float64 `json:"catalyst_strength"`
	CatalystSourceVerified bool     `json:"catalyst_source_verified"`
	SentimentZScore        *float64 `json:"sentiment_z_score"`
	DailyBars              []struct {
		Close  float64 `json:"c"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Volume float64 `json:"v"`
	} `json:"daily_bars"`
}

// FetchSymbolDetails pulls per-symbol options/short/catalyst/sentiment
// details plus the trailing daily bars window.
func (p *HTTPProvider) FetchSymbolDetails(ctx context.Context, symbol string) (SymbolDetails, error) {
	endpoint := fmt.Sprintf("%s/v1/details/%s", p.baseURL, symbol)
	q := url.Values{}
	if p.apiKey != "" {
		q.Set("apiKey", p.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return SymbolDetails{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return SymbolDetails{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return SymbolDetails{}, fmt.Errorf("symbol details %s: upstream status %d", symbol, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return SymbolDetails{}, fmt.Errorf("symbol details %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var body symbolDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return SymbolDetails{}, err
	}

	details := SymbolDetails{
		CatalystSourceVerified: body.CatalystSourceVerified,
	}
	details.FloatShares = optionalInt(body.FloatShares)
	details.ShortInterestPct = optionalFloat(body.ShortInterestPct)
	details.BorrowFeePct = optionalFloat(body.BorrowFeePct)
	details.UtilizationPct = optionalFloat(body.UtilizationPct)
	details.CallPutRatio = optionalFloat(body.CallPutRatio)
	details.IVPercentile = optionalFloat(body.IVPercentile)
	details.CatalystAgeHours = optionalFloat(body.CatalystAgeHours)
	details.CatalystStrength = optionalFloat(body.CatalystStrength)
	details.SentimentZScore = optionalFloat(body.SentimentZScore)

	for _, b := range body.DailyBars {
		details.DailyCloses = append(details.DailyCloses, b.Close)
		details.DailyHighs = append(details.DailyHighs, b.High)
		details.DailyLows = append(details.DailyLows, b.Low)
		details.DailyVolumes = append(details.DailyVolumes, b.Volume)
	}
	return details, nil
}

func optionalFloat(v *float64) domain.Unknown[float64] {
	if v == nil {
		return domain.UnknownValue[float64]()
	}
	return domain.Known(*v)
}

func optionalInt(v *int64) domain.Unknown[int64] {
	if v == nil {
		return domain.UnknownValue[int64]()
	}
	return domain.Known(*v)
}
