// Package scheduler runs the discovery pipeline on a fixed cadence per
// strategy, enqueuing through the same jobs.JobRunner the HTTP facade uses.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mikedmote52/amc-discovery/internal/jobs"
)

// Job is one scheduled strategy scan.
type Job struct {
	Name       string `yaml:"name"`
	StrategyID string `yaml:"strategy_id"`
	Interval   string `yaml:"interval"` // e.g. "5m", "30m" — parsed via time.ParseDuration
	Enabled    bool   `yaml:"enabled"`
}

// Config is the scheduler's YAML configuration: one cadence entry per
// strategy (hot/warm scans are just two Job entries with different
// intervals pointed at the same or different strategy ids).
type Config struct {
	Jobs []Job `yaml:"jobs"`
}

// LoadConfig reads and validates a scheduler config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scheduler config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scheduler config: %w", err)
	}
	for i := range cfg.Jobs {
		if cfg.Jobs[i].Interval == "" {
			continue
		}
		if _, err := time.ParseDuration(cfg.Jobs[i].Interval); err != nil {
			return cfg, fmt.Errorf("job %q: invalid interval %q: %w", cfg.Jobs[i].Name, cfg.Jobs[i].Interval, err)
		}
	}
	return cfg, nil
}

// Status is a point-in-time snapshot of the scheduler's run state.
type Status struct {
	Running     bool      `yaml:"running"`
	EnabledJobs int       `yaml:"enabled_jobs"`
	StartedAt   time.Time `yaml:"started_at"`
}

// Scheduler owns one ticker per enabled job and enqueues through a JobRunner.
type Scheduler struct {
	cfg       Config
	runner    *jobs.JobRunner
	startedAt time.Time
	running   bool
}

// New builds a Scheduler bound to runner.
func New(cfg Config, runner *jobs.JobRunner) *Scheduler {
	return &Scheduler{cfg: cfg, runner: runner}
}

// ListJobs returns the configured jobs.
func (s *Scheduler) ListJobs() []Job {
	return s.cfg.Jobs
}

// GetStatus reports the scheduler's current run state.
func (s *Scheduler) GetStatus() Status {
	enabled := 0
	for _, j := range s.cfg.Jobs {
		if j.Enabled {
			enabled++
		}
	}
	return Status{Running: s.running, EnabledJobs: enabled, StartedAt: s.startedAt}
}

// Start launches one goroutine per enabled job, each ticking at its
// configured interval and enqueuing its strategy. It blocks until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.running = true
	s.startedAt = time.Now()
	log.Info().Int("jobs", len(s.cfg.Jobs)).Msg("scheduler starting")

	done := make(chan struct{})
	active := 0
	for _, job := range s.cfg.Jobs {
		if !job.Enabled {
			continue
		}
		interval, err := time.ParseDuration(job.Interval)
		if err != nil || interval <= 0 {
			log.Warn().Str("job", job.Name).Str("interval", job.Interval).Msg("skipping job with invalid interval")
			continue
		}
		active++
		go s.runJobLoop(ctx, job, interval, done)
	}

	<-ctx.Done()
	s.running = false
	for i := 0; i < active; i++ {
		<-done
	}
	return ctx.Err()
}

func (s *Scheduler) runJobLoop(ctx context.Context, job Job, interval time.Duration, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(job)
		}
	}
}

func (s *Scheduler) trigger(job Job) {
	runID, alreadyActive, err := s.runner.Enqueue(job.StrategyID)
	if err != nil {
		log.Warn().Str("job", job.Name).Str("strategy_id", job.StrategyID).Err(err).Msg("scheduled enqueue failed")
		return
	}
	log.Info().Str("job", job.Name).Str("strategy_id", job.StrategyID).Str("run_id", runID).Bool("already_active", alreadyActive).Msg("scheduled scan enqueued")
}

// RunOnce triggers the named job immediately, outside its regular cadence.
func (s *Scheduler) RunOnce(name string) (string, error) {
	for _, job := range s.cfg.Jobs {
		if job.Name == name {
			runID, _, err := s.runner.Enqueue(job.StrategyID)
			return runID, err
		}
	}
	return "", fmt.Errorf("job not found: %s", name)
}
