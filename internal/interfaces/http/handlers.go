package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mikedmote52/amc-discovery/internal/cache"
	"github.com/mikedmote52/amc-discovery/internal/infrastructure/providers"
	"github.com/mikedmote52/amc-discovery/internal/jobs"
	"github.com/mikedmote52/amc-discovery/internal/persistence"
)

// DBHealth reports persistence-layer health. Satisfied by *db.Manager; kept
// as an interface here so the facade doesn't import infrastructure/db.
type DBHealth interface {
	Health(ctx context.Context) persistence.HealthCheck
}

// Handlers owns the facade's injected capabilities and has no state of its
// own: every request reads through to the job runner or the cache.
type Handlers struct {
	runner     *jobs.JobRunner
	store      cache.Store
	breakers   *providers.Manager
	resolveCfg jobs.ConfigResolver
	db         DBHealth
}

// NewHandlers builds a Handlers from the server's Deps.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		runner:     deps.Runner,
		store:      deps.Cache,
		breakers:   deps.Breakers,
		resolveCfg: deps.ResolveCfg,
		db:         deps.DB,
	}
}

// errorResponse is the §7 compact non-success payload.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"code":"json_encoding_failed","message":"response encoding failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message, runID string) {
	h.writeJSON(w, status, errorResponse{Code: code, Message: message, RunID: runID})
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist", "")
}

// parseLimit reads the limit query param, clamped to [1, max], defaulting to
// def on absence or malformed input.
func parseLimit(r *http.Request, def, max int) int {
	q := r.URL.Query().Get("limit")
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
