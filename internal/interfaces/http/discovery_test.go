package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikedmote52/amc-discovery/internal/cache"
	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/mikedmote52/amc-discovery/internal/jobs"
)

type stubRunner struct {
	record *domain.RunRecord
	err    error
}

func (s stubRunner) Run(ctx context.Context, runID string, cfg domain.StrategyConfig) (*domain.RunRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	rec := *s.record
	rec.RunID = runID
	return &rec, s.err
}

func newTestHandlers(t *testing.T, store cache.Store) *Handlers {
	t.Helper()
	runner := jobs.NewJobRunner(stubRunner{record: &domain.RunRecord{State: domain.RunSucceeded, SystemState: "HEALTHY"}}, func(id string) (domain.StrategyConfig, error) {
		return domain.StrategyConfig{ID: id}, nil
	}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go runner.Start(ctx)

	return NewHandlers(Deps{Runner: runner, Cache: store})
}

func TestNormalizeMinScoreFractionIsScaledToPercent(t *testing.T) {
	// Scenario S4: a caller-supplied fraction (<=1) is read on a 0-1 scale.
	if got := normalizeMinScore("0.75"); got != 75 {
		t.Fatalf("normalizeMinScore(0.75) = %v, want 75", got)
	}
}

func TestNormalizeMinScoreAlreadyPercent(t *testing.T) {
	if got := normalizeMinScore("82"); got != 82 {
		t.Fatalf("normalizeMinScore(82) = %v, want 82", got)
	}
}

func TestNormalizeMinScoreEmptyDefaultsToZero(t *testing.T) {
	if got := normalizeMinScore(""); got != 0 {
		t.Fatalf("normalizeMinScore(\"\") = %v, want 0", got)
	}
}

func TestTriggerIdempotentWhileActive(t *testing.T) {
	h := newTestHandlers(t, cache.NewMemory())

	req1 := httptest.NewRequest(http.MethodPost, "/discovery/trigger?strategy=default", nil)
	w1 := httptest.NewRecorder()
	h.Trigger(w1, req1)

	var body1 map[string]string
	if err := json.NewDecoder(w1.Body).Decode(&body1); err != nil {
		t.Fatalf("decode first response: %v", err)
	}
	if w1.Code != http.StatusAccepted && w1.Code != http.StatusOK {
		t.Fatalf("first Trigger() status = %d", w1.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/discovery/trigger?strategy=default", nil)
	w2 := httptest.NewRecorder()
	h.Trigger(w2, req2)

	var body2 map[string]string
	if err := json.NewDecoder(w2.Body).Decode(&body2); err != nil {
		t.Fatalf("decode second response: %v", err)
	}

	if body1["run_id"] == "" {
		t.Fatal("first response missing run_id")
	}
	// The two triggers race against the worker goroutine draining the
	// queue; either outcome (still-active idempotent hit, or a fresh
	// run because the first already finished) is a valid run_id, but a
	// still-active hit (200) must return the first run's id.
	if body2["run_id"] == "" {
		t.Fatal("second response missing run_id")
	}
	if w2.Code == http.StatusOK && body2["run_id"] != body1["run_id"] {
		t.Fatalf("active-run trigger returned run_id %q, want %q", body2["run_id"], body1["run_id"])
	}
}

func TestTriggerMissingStrategyIsBadRequest(t *testing.T) {
	h := newTestHandlers(t, cache.NewMemory())
	req := httptest.NewRequest(http.MethodPost, "/discovery/trigger", nil)
	w := httptest.NewRecorder()
	h.Trigger(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Trigger() status = %d, want 400", w.Code)
	}
}

func TestStatusUnknownRunIDIsNotFound(t *testing.T) {
	h := newTestHandlers(t, cache.NewMemory())
	req := httptest.NewRequest(http.MethodGet, "/discovery/status?run_id=nope", nil)
	w := httptest.NewRecorder()
	h.Status(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Status() status = %d, want 404", w.Code)
	}
}

func TestContendersServesCacheUnavailableAs503(t *testing.T) {
	h := newTestHandlers(t, cache.NewMemory())
	req := httptest.NewRequest(http.MethodGet, "/discovery/contenders?strategy=default", nil)
	w := httptest.NewRecorder()
	h.Contenders(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Contenders() status = %d, want 503 on cache miss", w.Code)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("Contenders() missing Cache-Control: no-store")
	}
	if w.Header().Get("X-System-State") != "DEGRADED" {
		t.Fatalf("X-System-State = %q, want DEGRADED on cache miss", w.Header().Get("X-System-State"))
	}
}

func TestContendersServesPublishedCandidates(t *testing.T) {
	store := cache.NewMemory()
	candidates := []domain.Candidate{
		{Symbol: "AAA", CompositeScore: 90},
		{Symbol: "BBB", CompositeScore: 40},
	}
	payload, _ := json.Marshal(candidates)
	store.Set(context.Background(), cache.StrategyKey("default"), payload, 0)

	h := newTestHandlers(t, store)
	req := httptest.NewRequest(http.MethodGet, "/discovery/contenders?strategy=default", nil)
	w := httptest.NewRecorder()
	h.Contenders(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Contenders() status = %d, want 200", w.Code)
	}
	var got []domain.Candidate
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func TestSqueezeCandidatesFiltersByMinScore(t *testing.T) {
	store := cache.NewMemory()
	candidates := []domain.Candidate{
		{Symbol: "AAA", CompositeScore: 90},
		{Symbol: "BBB", CompositeScore: 40},
	}
	payload, _ := json.Marshal(candidates)
	store.Set(context.Background(), cache.StrategyKey("default"), payload, 0)

	h := newTestHandlers(t, store)
	req := httptest.NewRequest(http.MethodGet, "/discovery/squeeze-candidates?strategy=default&min_score=0.75", nil)
	w := httptest.NewRecorder()
	h.SqueezeCandidates(w, req)

	var got []domain.Candidate
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "AAA" {
		t.Fatalf("got = %+v, want only AAA (score 90 >= min_score 75)", got)
	}
}

func TestHealthReportsOK(t *testing.T) {
	h := newTestHandlers(t, cache.NewMemory())
	req := httptest.NewRequest(http.MethodGet, "/discovery/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Health() status = %d, want 200", w.Code)
	}
}
