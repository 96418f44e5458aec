package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/mikedmote52/amc-discovery/internal/cache"
	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/mikedmote52/amc-discovery/internal/jobs"
)

const (
	defaultContendersLimit = 50
	maxContendersLimit     = 500
)

// Trigger handles POST /discovery/trigger?strategy={id}&limit={n}.
func (h *Handlers) Trigger(w http.ResponseWriter, r *http.Request) {
	strategyID := r.URL.Query().Get("strategy")
	if strategyID == "" {
		h.writeError(w, http.StatusBadRequest, "missing_strategy", "strategy query parameter is required", "")
		return
	}
	if h.resolveCfg != nil {
		if _, err := h.resolveCfg(strategyID); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_config", err.Error(), "")
			return
		}
	}

	runID, alreadyActive, err := h.runner.Enqueue(strategyID)
	if err != nil {
		if err == jobs.ErrBusy {
			h.writeError(w, http.StatusServiceUnavailable, "busy", "job queue is full", "")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "enqueue_failed", err.Error(), "")
		return
	}

	status := "queued"
	code := http.StatusAccepted
	if alreadyActive {
		code = http.StatusOK
		if rec := h.runner.Poll(runID); rec != nil {
			status = string(rec.State)
		}
	}
	h.writeJSON(w, code, map[string]string{"run_id": runID, "status": status})
}

// Status handles GET /discovery/status?run_id={id}.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		h.writeError(w, http.StatusBadRequest, "missing_run_id", "run_id query parameter is required", "")
		return
	}
	rec := h.runner.Poll(runID)
	if rec == nil {
		h.writeError(w, http.StatusNotFound, "run_not_found", "no run with that id", runID)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// Contenders handles GET /discovery/contenders?strategy={id}&limit={n}.
func (h *Handlers) Contenders(w http.ResponseWriter, r *http.Request) {
	strategyID := r.URL.Query().Get("strategy")
	limit := parseLimit(r, defaultContendersLimit, maxContendersLimit)

	candidates, systemState, ok := h.readCandidates(r.Context(), strategyID)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-System-State", systemState)
	w.Header().Set("X-Reason-Stats", h.reasonStatsHeader(strategyID))

	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	h.writeJSON(w, http.StatusOK, candidates)
}

// SqueezeCandidates handles
// GET /discovery/squeeze-candidates?strategy={id}&min_score={v}&limit={n}.
func (h *Handlers) SqueezeCandidates(w http.ResponseWriter, r *http.Request) {
	strategyID := r.URL.Query().Get("strategy")
	limit := parseLimit(r, defaultContendersLimit, maxContendersLimit)
	minScore := normalizeMinScore(r.URL.Query().Get("min_score"))

	candidates, systemState, ok := h.readCandidates(r.Context(), strategyID)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-System-State", systemState)
	w.Header().Set("X-Reason-Stats", h.reasonStatsHeader(strategyID))

	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	filtered := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.CompositeScore >= minScore {
			filtered = append(filtered, c)
		}
	}
	if limit < len(filtered) {
		filtered = filtered[:limit]
	}
	h.writeJSON(w, http.StatusOK, filtered)
}

// normalizeMinScore implements §4.8's scale rule: values <= 1 are read as a
// 0-1 fraction and scaled to 0-100; anything larger is already 0-100.
func normalizeMinScore(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	if v <= 1 {
		return v * 100
	}
	return float64(int(v))
}

// readCandidates reads the strategy-scoped cache key, falling back to the
// unsuffixed default key, and reports the system state to surface alongside
// it. ok is false only on a genuine cache miss/backend failure, which the
// caller treats as degraded per §7's CacheUnavailable handling.
func (h *Handlers) readCandidates(ctx context.Context, strategyID string) ([]domain.Candidate, string, bool) {
	key := cache.FallbackKey()
	if strategyID != "" {
		key = cache.StrategyKey(strategyID)
	}
	raw, found := h.store.Get(ctx, key)
	if !found && strategyID != "" {
		raw, found = h.store.Get(ctx, cache.FallbackKey())
	}
	if DefaultMetrics != nil {
		if found {
			DefaultMetrics.RecordCacheHit(key)
		} else {
			DefaultMetrics.RecordCacheMiss(key)
		}
	}
	if !found {
		return nil, "DEGRADED", false
	}

	var candidates []domain.Candidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, "DEGRADED", false
	}

	systemState := "HEALTHY"
	if rec := h.runner.LastRecord(strategyID); rec != nil && rec.SystemState != "" {
		systemState = rec.SystemState
	}
	return candidates, systemState, true
}

// reasonStatsHeader flattens every stage's rejection-reason histogram from
// the strategy's last completed run into a single comma-separated header
// value sorted by reason, e.g. "etp_excluded:1,price_below_min:2".
func (h *Handlers) reasonStatsHeader(strategyID string) string {
	rec := h.runner.LastRecord(strategyID)
	if rec == nil {
		return ""
	}
	totals := map[string]int{}
	for _, stage := range rec.Stages {
		for reason, count := range stage.Reasons {
			totals[reason] += count
		}
	}
	if len(totals) == 0 {
		return ""
	}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, totals[k]))
	}
	return strings.Join(parts, ",")
}

// Health handles GET /discovery/health: liveness plus downstream provider
// status from the circuit breaker manager.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
	}
	if h.breakers != nil {
		if status := h.breakers.Status("marketdata"); status != nil {
			resp["marketdata_provider"] = status
		}
	}
	if h.db != nil {
		resp["persistence"] = h.db.Health(r.Context())
	}
	if DefaultMetrics != nil {
		resp["cache_hit_ratio"] = DefaultMetrics.CacheHitRatio(cache.FallbackKey())
	}
	h.writeJSON(w, http.StatusOK, resp)
}
