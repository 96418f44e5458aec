package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mikedmote52/amc-discovery/internal/domain"
)

func testResolver(strategyID string) (domain.StrategyConfig, error) {
	return domain.StrategyConfig{ID: strategyID}, nil
}

// blockingRunner blocks on runCh until signaled, letting tests control
// exactly when a run completes.
type blockingRunner struct {
	mu     sync.Mutex
	starts int
	runCh  chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, runID string, cfg domain.StrategyConfig) (*domain.RunRecord, error) {
	b.mu.Lock()
	b.starts++
	b.mu.Unlock()

	select {
	case <-b.runCh:
		return &domain.RunRecord{RunID: runID, StrategyID: cfg.ID, State: domain.RunSucceeded, SystemState: "HEALTHY"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TestEnqueueIdempotentPerStrategy covers scenario S6: triggering an
// already-active strategy returns the same run_id instead of starting a
// second run.
func TestEnqueueIdempotentPerStrategy(t *testing.T) {
	runner := &blockingRunner{runCh: make(chan struct{})}
	r := NewJobRunner(runner, testResolver, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	id1, active1, err := r.Enqueue("default")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if active1 {
		t.Fatal("first Enqueue() reported alreadyActive = true")
	}

	// give the worker a moment to pick up the job and mark it active
	time.Sleep(20 * time.Millisecond)

	id2, active2, err := r.Enqueue("default")
	if err != nil {
		t.Fatalf("second Enqueue() error = %v", err)
	}
	if !active2 {
		t.Fatal("second Enqueue() reported alreadyActive = false")
	}
	if id1 != id2 {
		t.Fatalf("run ids differ: %s != %s", id1, id2)
	}

	close(runner.runCh)
}

func TestEnqueueReturnsErrBusyWhenQueueFull(t *testing.T) {
	runner := &blockingRunner{runCh: make(chan struct{})}
	// No worker started: every Enqueue call fills the bounded channel buffer.
	r := NewJobRunner(runner, testResolver, 5*time.Second)

	ok := 0
	for i := 0; i < defaultQueueLen+1; i++ {
		strategyID := "strategy-" + string(rune('a'+i%26)) + string(rune('A'+i/26))
		_, _, err := r.Enqueue(strategyID)
		if err == nil {
			ok++
		}
	}
	if ok > defaultQueueLen {
		t.Fatalf("accepted %d jobs, want at most %d (bounded queue)", ok, defaultQueueLen)
	}
}

func TestExecuteTimeoutMarksRunTimedOut(t *testing.T) {
	runner := &blockingRunner{runCh: make(chan struct{})} // never closed: run never completes
	r := NewJobRunner(runner, testResolver, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	runID, _, err := r.Enqueue("default")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		rec := r.Poll(runID)
		if rec != nil && rec.State == domain.RunTimedOut {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("run never reached timed_out state, last = %+v", rec)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPollUnknownRunIDReturnsNil(t *testing.T) {
	runner := &blockingRunner{runCh: make(chan struct{})}
	r := NewJobRunner(runner, testResolver, time.Second)
	if rec := r.Poll("does-not-exist"); rec != nil {
		t.Fatal("Poll() returned a record for an unknown run id")
	}
}

func TestLastRecordReflectsMostRecentFinish(t *testing.T) {
	runner := &blockingRunner{runCh: make(chan struct{})}
	r := NewJobRunner(runner, testResolver, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	if rec := r.LastRecord("default"); rec != nil {
		t.Fatal("LastRecord() non-nil before any run finished")
	}

	runID, _, err := r.Enqueue("default")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	close(runner.runCh)

	deadline := time.After(2 * time.Second)
	for {
		rec := r.LastRecord("default")
		if rec != nil && rec.RunID == runID {
			return
		}
		select {
		case <-deadline:
			t.Fatal("LastRecord() never reflected the finished run")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
