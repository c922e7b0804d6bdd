package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: []byte("test-secret")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueAndValidateToken_RoundTrips(t *testing.T) {
	m := newTestManager(t)
	token, err := m.IssueToken("alice", "viewer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != "viewer" {
		t.Fatalf("want subject=alice role=viewer, got %+v", claims)
	}
}

func TestValidateToken_RejectsForeignSecret(t *testing.T) {
	m := newTestManager(t)
	token, err := m.IssueToken("alice", "viewer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := NewManager(Config{Secret: []byte("different-secret")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("want validation to fail against a different signing secret")
	}
}

func TestMiddleware_RejectsMissingToken(t *testing.T) {
	m := newTestManager(t)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestMiddleware_AllowsValidToken(t *testing.T) {
	m := newTestManager(t)
	token, err := m.IssueToken("alice", "viewer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var sawSubject string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("want claims present in request context")
		}
		sawSubject = claims.Subject
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if sawSubject != "alice" {
		t.Fatalf("want subject alice, got %q", sawSubject)
	}
}
