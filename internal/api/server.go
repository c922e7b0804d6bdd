// Package api exposes the optional read-only status/inspection API:
// scenario run results and broker account snapshots, protected by JWT and
// fronted by CORS/rate-limit middleware (SPEC_FULL.md PART 3). It has no
// bearing on the core engine loop — spec.md §6 "Persisted state: none"
// still holds; this only renders whatever the caller hands it.
package api

import (
	"encoding/json"
	"net/http"

	"jax-eventengine/internal/api/auth"
	"jax-eventengine/internal/api/middleware"
	"jax-eventengine/internal/domain"
)

// RunSnapshot is the read-only view of one completed engine run returned
// by GET /runs/{id}.
type RunSnapshot struct {
	RunID      string             `json:"run_id"`
	Executions []domain.Execution `json:"executions"`
	Strategies map[string]string  `json:"strategies"` // key -> final fsm.StrategyState
}

// SnapshotStore is whatever the caller uses to look up a completed run;
// internal/scenario or a caller-held in-memory map both satisfy it.
type SnapshotStore interface {
	RunSnapshot(runID string) (RunSnapshot, bool)
}

// Server wires the inspection API's routes behind the auth and
// CORS/rate-limit middleware.
type Server struct {
	store   SnapshotStore
	authMgr *auth.Manager
	limiter *middleware.RateLimiter
	mux     *http.ServeMux
}

// NewServer builds a Server over store, requiring every request to carry
// a valid bearer token issued by authMgr.
func NewServer(store SnapshotStore, authMgr *auth.Manager) *Server {
	s := &Server{
		store:   store,
		authMgr: authMgr,
		limiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	return s
}

// Handler returns the fully wrapped http.Handler: CORS -> rate limit ->
// auth -> routes, outermost first.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.authMgr.Middleware(h)
	h = s.limiter.Middleware(h)
	h = middleware.CORS(middleware.DefaultCORSConfig())(h)
	return h
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snapshot, ok := s.store.RunSnapshot(id)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		http.Error(w, "failed to encode snapshot", http.StatusInternalServerError)
	}
}
