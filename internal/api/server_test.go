package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"jax-eventengine/internal/api/auth"
)

type fakeStore struct {
	snapshots map[string]RunSnapshot
}

func (f *fakeStore) RunSnapshot(runID string) (RunSnapshot, bool) {
	s, ok := f.snapshots[runID]
	return s, ok
}

func newTestServer(t *testing.T) (*Server, *auth.Manager) {
	t.Helper()
	mgr, err := auth.NewManager(auth.Config{Secret: []byte("test-secret")})
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	store := &fakeStore{snapshots: map[string]RunSnapshot{
		"run-1": {RunID: "run-1", Strategies: map[string]string{"strat-1": "STOPPED"}},
	}}
	return NewServer(store, mgr), mgr
}

func TestServer_RejectsUnauthenticatedRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/runs/run-1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestServer_ReturnsSnapshotForKnownRun(t *testing.T) {
	srv, mgr := newTestServer(t)
	token, err := mgr.IssueToken("alice", "viewer")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/runs/run-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServer_ReturnsNotFoundForUnknownRun(t *testing.T) {
	srv, mgr := newTestServer(t)
	token, err := mgr.IssueToken("alice", "viewer")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/runs/missing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}
