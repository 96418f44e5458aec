// Package providers wraps upstream market data calls in a circuit breaker so
// repeated failures stop hammering a provider that is already down.
package providers

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the trip condition for one named provider.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ErrorRateThreshold  float64
	ConsecutiveFailures uint32
}

// DefaultMarketDataBreakerConfig is the circuit breaker configuration for the
// upstream grouped-bars/details provider.
func DefaultMarketDataBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "marketdata",
		MaxRequests:         5,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ErrorRateThreshold:  30.0,
		ConsecutiveFailures: 3,
	}
}

// Status is a point-in-time snapshot of a breaker, exposed via the health
// endpoint.
type Status struct {
	Name                string
	State               string
	Requests            uint32
	TotalFailures       uint32
	ErrorRate           float64
	ConsecutiveFailures uint32
	NextReset           time.Time
}

// Manager owns one circuit breaker per named upstream provider.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	configs  map[string]BreakerConfig
}

// NewManager builds an empty breaker manager.
func NewManager() *Manager {
	return &Manager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		configs:  make(map[string]BreakerConfig),
	}
}

// Register installs a breaker for the named provider.
func (m *Manager) Register(cfg BreakerConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs[cfg.Name] = cfg
	settings := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   tripCondition(cfg),
		OnStateChange: logStateChange,
	}
	m.breakers[cfg.Name] = gobreaker.NewCircuitBreaker(settings)
}

// Execute runs fn through the named provider's breaker.
func (m *Manager) Execute(provider string, fn func() (interface{}, error)) (interface{}, error) {
	m.mu.RLock()
	breaker, ok := m.breakers[provider]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no circuit breaker registered for provider %q", provider)
	}
	return breaker.Execute(fn)
}

// Status reports the current breaker state for provider, or nil if unknown.
func (m *Manager) Status(provider string) *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	breaker, ok := m.breakers[provider]
	if !ok {
		return nil
	}
	cfg := m.configs[provider]
	counts := breaker.Counts()

	var errorRate float64
	if counts.Requests > 0 {
		errorRate = float64(counts.TotalFailures) / float64(counts.Requests) * 100
	}
	var nextReset time.Time
	if breaker.State() == gobreaker.StateOpen {
		nextReset = time.Now().Add(cfg.Timeout)
	}
	return &Status{
		Name:                cfg.Name,
		State:               breaker.State().String(),
		Requests:            counts.Requests,
		TotalFailures:       counts.TotalFailures,
		ErrorRate:           errorRate,
		ConsecutiveFailures: counts.ConsecutiveFailures,
		NextReset:           nextReset,
	}
}

func tripCondition(cfg BreakerConfig) func(counts gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests >= 10 {
			errorRate := float64(counts.TotalFailures) / float64(counts.Requests) * 100
			if errorRate >= cfg.ErrorRateThreshold {
				return true
			}
		}
		return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
	}
}

func logStateChange(name string, from, to gobreaker.State) {
	log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
}
