package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mtlprog/swaproute/internal/domain"
)

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{"valid token", "Bearer secret-key", http.StatusOK, true},
		{"missing header", "", http.StatusUnauthorized, false},
		{"wrong token", "Bearer wrong-key", http.StatusUnauthorized, false},
		{"malformed header", "Basic secret-key", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			requireAuth("secret-key", next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("next called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

type mockPreloader struct {
	chains []domain.ChainID
	n      int
	err    error
}

func (m *mockPreloader) Preload(_ context.Context, chains []domain.ChainID) (int, error) {
	m.chains = chains
	return m.n, m.err
}

func TestServerPreload(t *testing.T) {
	pre := &mockPreloader{n: 42}
	srv := NewServer("0", NewHandler(&mockRouteService{}, &mockPriceService{}), pre, "secret-key")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens/preload?chains=1,solana", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]int
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["loaded"] != 42 {
		t.Errorf("loaded = %d, want 42", body["loaded"])
	}
	if len(pre.chains) != 2 || pre.chains[1] != domain.ChainSolana {
		t.Errorf("chains = %v", pre.chains)
	}
}

func TestServerPreloadErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		auth       string
		err        error
		wantStatus int
	}{
		{"unauthorized", "/api/v1/tokens/preload?chains=1", "", nil, http.StatusUnauthorized},
		{"bad chains", "/api/v1/tokens/preload?chains=1,mars", "Bearer k", nil, http.StatusBadRequest},
		{"repository failure", "/api/v1/tokens/preload?chains=1", "Bearer k", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer("0", NewHandler(&mockRouteService{}, &mockPriceService{}), &mockPreloader{err: tt.err}, "k")
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestServerWithoutDatabaseHasNoPreload(t *testing.T) {
	srv := NewServer("0", NewHandler(&mockRouteService{}, &mockPriceService{}), nil, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens/preload", nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
}
