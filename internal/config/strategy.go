// Package config loads and validates strategy configuration files.
package config

import (
	"fmt"
	"math"
	"os"

	"github.com/mikedmote52/amc-discovery/internal/domain"
	"gopkg.in/yaml.v3"
)

const weightTolerance = 1e-6

// DefaultStrategy is the AlphaStack 4.1 weight vector and default guards.
func DefaultStrategy() domain.StrategyConfig {
	return domain.StrategyConfig{
		ID: "default",
		Weights: domain.StrategyWeights{
			VolumeMomentum: 0.30,
			Squeeze:        0.25,
			Catalyst:       0.20,
			Sentiment:      0.10,
			Options:        0.08,
			Technical:      0.07,
		},
		Tiers: domain.TierThresholds{
			TradeReady: 75,
			Watchlist:  70,
		},
		Guards: domain.GuardConstants{
			MinPrice:        1.50,
			MinDollarVolume: 1_000_000,
			MaxSpreadBps:    60,
		},
		UniverseCap:           300,
		EnrichmentConcurrency: 8,
		ElasticFloor:          3,
	}
}

// LoadStrategy reads and validates a strategy file from path.
func LoadStrategy(path string) (domain.StrategyConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.StrategyConfig{}, domain.NewInvalidConfig("read strategy file", err)
	}
	cfg := DefaultStrategy()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return domain.StrategyConfig{}, domain.NewInvalidConfig("parse strategy file", err)
	}
	if err := Validate(cfg); err != nil {
		return domain.StrategyConfig{}, err
	}
	return cfg, nil
}

// Validate checks a strategy config's invariants: weight vector sums to
// 1.00±1e-6, thresholds are ordered, caps are positive.
func Validate(cfg domain.StrategyConfig) error {
	if cfg.ID == "" {
		return domain.NewInvalidConfig("strategy id must not be empty", nil)
	}
	sum := cfg.Weights.Sum()
	if math.Abs(sum-1.0) > weightTolerance {
		return domain.NewInvalidConfig(fmt.Sprintf("weight vector sums to %.9f, want 1.00±%.0e", sum, weightTolerance), nil)
	}
	if cfg.Tiers.TradeReady < cfg.Tiers.Watchlist {
		return domain.NewInvalidConfig("trade_ready threshold must be >= watchlist threshold", nil)
	}
	if cfg.UniverseCap <= 0 {
		return domain.NewInvalidConfig("universe_cap must be positive", nil)
	}
	if cfg.EnrichmentConcurrency <= 0 {
		return domain.NewInvalidConfig("enrichment_concurrency must be positive", nil)
	}
	if cfg.ElasticFloor < 0 {
		return domain.NewInvalidConfig("elastic_floor must not be negative", nil)
	}
	if cfg.Guards.MinPrice < 0 || cfg.Guards.MinDollarVolume < 0 || cfg.Guards.MaxSpreadBps < 0 {
		return domain.NewInvalidConfig("guard constants must not be negative", nil)
	}
	return nil
}
