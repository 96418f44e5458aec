package domain

import "time"

// TickerSnapshot is one row of the daily universe snapshot, per symbol.
type TickerSnapshot struct {
	Symbol        string
	LastPrice     float64
	SessionVolume int64
	PrevClose     float64
	SessionHigh   float64
	SessionLow    float64
	VWAP          Unknown[float64] // absent pre-market
	Open          float64
	IssuerName    string // company/fund name from the provider; empty if not supplied
}

// EnrichedSymbol is a TickerSnapshot plus per-symbol details fetched from the
// provider and the feature calculator. Every optional field is a three-valued
// Unknown rather than a zero default.
type EnrichedSymbol struct {
	TickerSnapshot

	AvgVolume20d           Unknown[int64]
	FloatShares            Unknown[int64]
	ShortInterestPct       Unknown[float64]
	BorrowFeePct           Unknown[float64]
	UtilizationPct         Unknown[float64]
	CallPutRatio           Unknown[float64]
	IVPercentile           Unknown[float64]
	CatalystAgeHours       Unknown[float64]
	CatalystStrength       Unknown[float64]
	CatalystSourceVerified bool
	SentimentZScore        Unknown[float64]

	EMA9             Unknown[float64]
	EMA20            Unknown[float64]
	RSI14            Unknown[float64]
	ATRPct           Unknown[float64]
	ATRPctMean10d    Unknown[float64]
	IntradayRelVol   Unknown[float64]
	FloatRotationPct Unknown[float64]
	FrictionIndex    Unknown[float64]
	ConsecutiveUpDays Unknown[int]
	VWAPReclaimed    Unknown[bool]

	EnrichmentReasons []string // per-symbol reasons for any unknown field
}

// SubScores holds the six 0-100 component scores.
type SubScores struct {
	VolumeMomentum Unknown[float64]
	Squeeze        Unknown[float64]
	Catalyst       Unknown[float64]
	Sentiment      Unknown[float64]
	Options        Unknown[float64]
	Technical      Unknown[float64]
}

// ActionTag is the tier assigned to a candidate.
type ActionTag string

const (
	TagTradeReady ActionTag = "trade_ready"
	TagWatchlist  ActionTag = "watchlist"
	TagMonitor    ActionTag = "monitor"
)

// Candidate is a published, scored symbol.
type Candidate struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	CompositeScore float64   `json:"composite_score"`
	SubScores      SubScoresJSON `json:"sub_scores"`
	ActionTag      ActionTag `json:"action_tag"`
	Reasons        []string  `json:"reasons"`
	Entry          float64   `json:"entry"`
	Stop           float64   `json:"stop"`
	Target1        float64   `json:"target_1"`
	Target2        float64   `json:"target_2"`
	ComputedAt     time.Time `json:"computed_at"`
	StrategyID     string    `json:"strategy_id"`
	Confidence     float64   `json:"confidence"`

	// non-published fields used only for tie-breaking before serialization
	IntradayRelVol      float64 `json:"-"`
	VolumeMomentumScore float64 `json:"-"`
}

// SubScoresJSON is the wire representation of SubScores: unknown buckets are
// simply omitted rather than defaulted to zero.
type SubScoresJSON struct {
	VolumeMomentum *float64 `json:"volume_momentum,omitempty"`
	Squeeze        *float64 `json:"squeeze,omitempty"`
	Catalyst       *float64 `json:"catalyst,omitempty"`
	Sentiment      *float64 `json:"sentiment,omitempty"`
	Options        *float64 `json:"options,omitempty"`
	Technical      *float64 `json:"technical,omitempty"`
}

// StrategyConfig is a named weight vector, tier thresholds, and guard set.
type StrategyConfig struct {
	ID       string             `yaml:"id"`
	Weights  StrategyWeights    `yaml:"weights"`
	Tiers    TierThresholds     `yaml:"tier_thresholds"`
	Guards   GuardConstants     `yaml:"guards"`
	UniverseCap           int   `yaml:"universe_cap"`
	EnrichmentConcurrency int   `yaml:"enrichment_concurrency"`
	ElasticFloor          int   `yaml:"elastic_floor"`
}

// StrategyWeights is the six-component weight vector; must sum to 1.00±1e-6.
type StrategyWeights struct {
	VolumeMomentum float64 `yaml:"volume_momentum"`
	Squeeze        float64 `yaml:"squeeze"`
	Catalyst       float64 `yaml:"catalyst"`
	Sentiment      float64 `yaml:"sentiment"`
	Options        float64 `yaml:"options"`
	Technical      float64 `yaml:"technical"`
}

// Sum returns the total of the six weights.
func (w StrategyWeights) Sum() float64 {
	return w.VolumeMomentum + w.Squeeze + w.Catalyst + w.Sentiment + w.Options + w.Technical
}

// TierThresholds controls action-tag assignment.
type TierThresholds struct {
	TradeReady float64 `yaml:"trade_ready"`
	Watchlist  float64 `yaml:"watchlist"`
}

// GuardConstants are the universe filter's hard guards.
type GuardConstants struct {
	MinPrice        float64 `yaml:"min_price"`
	MinDollarVolume float64 `yaml:"min_dollar_volume"`
	MaxSpreadBps    float64 `yaml:"max_spread_bps"`
}

// RunState is the lifecycle state of a pipeline run.
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
	RunTimedOut  RunState = "timed_out"
)

// StageCount records a pipeline stage's in/out counts and rejection reasons.
type StageCount struct {
	Stage   string         `json:"stage"`
	In      int            `json:"in"`
	Out     int            `json:"out"`
	Reasons map[string]int `json:"reasons,omitempty"`
}

// RunRecord is the observable state of one discovery run.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	StrategyID string     `json:"strategy_id"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	State      RunState   `json:"state"`
	Stages     []StageCount `json:"stages,omitempty"`
	Error      string     `json:"error,omitempty"`
	SystemState string    `json:"system_state,omitempty"` // HEALTHY | STALE | DEGRADED
}
