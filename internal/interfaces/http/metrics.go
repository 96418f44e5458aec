package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// MetricsRegistry holds the discovery pipeline's Prometheus metrics.
type MetricsRegistry struct {
	StepDuration *prometheus.HistogramVec
	RunsTotal    *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ActiveRuns prometheus.Gauge
}

// NewMetricsRegistry builds and registers the discovery metrics.
func NewMetricsRegistry() *MetricsRegistry {
	registry := &MetricsRegistry{
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amc_discovery_step_duration_seconds",
				Help:    "Duration of each pipeline stage (filter, enrich, score, publish).",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage", "result"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amc_discovery_runs_total",
				Help: "Total discovery runs by terminal state.",
			},
			[]string{"strategy_id", "state"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amc_discovery_cache_hits_total",
				Help: "Contender cache reads that found a value.",
			},
			[]string{"key"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amc_discovery_cache_misses_total",
				Help: "Contender cache reads that found nothing.",
			},
			[]string{"key"},
		),
		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "amc_discovery_active_runs",
				Help: "Runs currently executing across all strategies.",
			},
		),
	}

	prometheus.MustRegister(
		registry.StepDuration,
		registry.RunsTotal,
		registry.CacheHits,
		registry.CacheMisses,
		registry.ActiveRuns,
	)
	return registry
}

// StepTimer times one pipeline stage.
type StepTimer struct {
	metrics *MetricsRegistry
	stage   string
	start   time.Time
}

// StartStepTimer begins timing a pipeline stage.
func (m *MetricsRegistry) StartStepTimer(stage string) *StepTimer {
	return &StepTimer{metrics: m, stage: stage, start: time.Now()}
}

// Stop records the stage's duration under the given result label.
func (st *StepTimer) Stop(result string) {
	st.metrics.StepDuration.WithLabelValues(st.stage, result).Observe(time.Since(st.start).Seconds())
}

// RecordCacheHit records a successful cache read.
func (m *MetricsRegistry) RecordCacheHit(key string) {
	m.CacheHits.WithLabelValues(key).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *MetricsRegistry) RecordCacheMiss(key string) {
	m.CacheMisses.WithLabelValues(key).Inc()
}

// RecordRunState records a run's terminal state.
func (m *MetricsRegistry) RecordRunState(strategyID, state string) {
	m.RunsTotal.WithLabelValues(strategyID, state).Inc()
}

// CacheHitRatio reads the current values of the hit/miss counters for key and
// returns hits/(hits+misses), or 0 when nothing has been recorded yet. Used
// by the health endpoint rather than requiring a scrape-and-parse round trip
// through /metrics.
func (m *MetricsRegistry) CacheHitRatio(key string) float64 {
	hits := readCounterValue(m.CacheHits, key)
	misses := readCounterValue(m.CacheMisses, key)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}

func readCounterValue(vec *prometheus.CounterVec, label string) float64 {
	counter, err := vec.GetMetricWithLabelValues(label)
	if err != nil {
		return 0
	}
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the process-wide metrics registry, initialized once at
// startup by InitializeMetrics.
var DefaultMetrics *MetricsRegistry

// InitializeMetrics builds the global metrics registry.
func InitializeMetrics() {
	DefaultMetrics = NewMetricsRegistry()
	log.Info().Msg("prometheus metrics registry initialized")
}
