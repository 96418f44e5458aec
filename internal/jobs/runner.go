// Package jobs decouples the HTTP trigger from pipeline execution and
// enforces at-most-one active run per strategy.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/rs/zerolog/log"
)

// defaultQueueLen is the bounded FIFO queue length from §5 backpressure.
const defaultQueueLen = 32

// Runner is the Orchestrator's own Run signature. Decoupling it from a
// concrete import lets the runner own config resolution per strategy.
type Runner interface {
	Run(ctx context.Context, runID string, cfg domain.StrategyConfig) (*domain.RunRecord, error)
}

// ConfigResolver maps a strategy id to its validated StrategyConfig.
type ConfigResolver func(strategyID string) (domain.StrategyConfig, error)

// ErrBusy is returned by Enqueue when the queue is full.
var ErrBusy = fmt.Errorf("job queue full")

type work struct {
	runID      string
	strategyID string
	deadline   time.Duration
}

// JobRunner is the C6 job coordination layer: Enqueue/Poll plus a worker
// loop consuming a bounded FIFO queue.
type JobRunner struct {
	resolveConfig ConfigResolver
	orchestrator  Runner

	queue chan work

	mu       sync.Mutex
	records  map[string]*domain.RunRecord
	active   map[string]string // strategyID -> active run_id
	lastDone map[string]string // strategyID -> most recently finished run_id

	runTimeout time.Duration
}

// NewJobRunner builds a JobRunner. It does not start the worker: call
// Start(ctx), typically in its own goroutine; cancelling ctx stops it.
func NewJobRunner(orchestrator Runner, resolveConfig ConfigResolver, runTimeout time.Duration) *JobRunner {
	if runTimeout <= 0 {
		runTimeout = 300 * time.Second
	}
	r := &JobRunner{
		resolveConfig: resolveConfig,
		orchestrator:  orchestrator,
		queue:         make(chan work, defaultQueueLen),
		records:       make(map[string]*domain.RunRecord),
		active:        make(map[string]string),
		lastDone:      make(map[string]string),
		runTimeout:    runTimeout,
	}
	return r
}

// Start launches the worker loop; it returns when ctx is cancelled.
func (r *JobRunner) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-r.queue:
			r.execute(ctx, w)
		}
	}
}

// Enqueue atomically checks for an existing queued/running run for
// strategyID and returns its run_id if present (idempotent); otherwise it
// creates a new record and pushes it onto the queue, returning ErrBusy if
// the queue is full.
func (r *JobRunner) Enqueue(strategyID string) (runID string, alreadyActive bool, err error) {
	r.mu.Lock()
	if existing, ok := r.active[strategyID]; ok {
		r.mu.Unlock()
		return existing, true, nil
	}

	runID = uuid.NewString()
	record := &domain.RunRecord{
		RunID:      runID,
		StrategyID: strategyID,
		EnqueuedAt: time.Now(),
		State:      domain.RunQueued,
	}
	r.records[runID] = record
	r.active[strategyID] = runID
	r.mu.Unlock()

	select {
	case r.queue <- work{runID: runID, strategyID: strategyID, deadline: r.runTimeout}:
		return runID, false, nil
	default:
		r.mu.Lock()
		delete(r.records, runID)
		delete(r.active, strategyID)
		r.mu.Unlock()
		return "", false, ErrBusy
	}
}

// Poll returns the RunRecord for runID, or nil if unknown.
func (r *JobRunner) Poll(runID string) *domain.RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[runID]
	if !ok {
		return nil
	}
	copyRec := *rec
	return &copyRec
}

// LastRecord returns the most recently finished run for strategyID, or nil
// if none has finished yet. Used by the contenders/squeeze-candidates
// handlers to surface reason stats and system state alongside a cache read.
func (r *JobRunner) LastRecord(strategyID string) *domain.RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	runID, ok := r.lastDone[strategyID]
	if !ok {
		return nil
	}
	rec, ok := r.records[runID]
	if !ok {
		return nil
	}
	copyRec := *rec
	return &copyRec
}

func (r *JobRunner) execute(parent context.Context, w work) {
	cfg, err := r.resolveConfig(w.strategyID)
	if err != nil {
		r.finish(w, domain.RunFailed, err)
		return
	}

	ctx, cancel := context.WithTimeout(parent, w.deadline)
	defer cancel()

	done := make(chan struct{})
	var record *domain.RunRecord
	var runErr error
	go func() {
		record, runErr = r.orchestrator.Run(ctx, w.runID, cfg)
		close(done)
	}()

	select {
	case <-done:
		if runErr != nil {
			log.Error().Str("run_id", w.runID).Str("strategy_id", w.strategyID).Err(runErr).Msg("run failed")
		}
		r.store(w, record)
	case <-ctx.Done():
		// The worker drops the in-flight result per §4.6: no cancellation
		// hook into the data provider is required.
		r.finish(w, domain.RunTimedOut, ctx.Err())
	}
}

func (r *JobRunner) store(w work, record *domain.RunRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record != nil {
		r.records[w.runID] = record
	}
	delete(r.active, w.strategyID)
	r.lastDone[w.strategyID] = w.runID
}

func (r *JobRunner) finish(w work, state domain.RunState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[w.runID]; ok {
		finished := time.Now()
		rec.State = state
		rec.FinishedAt = &finished
		if err != nil {
			rec.Error = err.Error()
		}
	}
	delete(r.active, w.strategyID)
	r.lastDone[w.strategyID] = w.runID
}
