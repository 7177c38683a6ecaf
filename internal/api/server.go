// Package api exposes the routing engine and price oracle over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/mtlprog/swaproute/internal/domain"
)

// Preloader seeds the token metadata cache from storage.
type Preloader interface {
	Preload(ctx context.Context, chains []domain.ChainID) (int, error)
}

// NewServer creates an HTTP server with all routes configured. preloader may
// be nil when no database is configured.
func NewServer(port string, handler *Handler, preloader Preloader, adminAPIKey string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Health)
	mux.HandleFunc("GET /api/v1/route", handler.GetRoute)
	mux.HandleFunc("GET /api/v1/route/export", handler.ExportRoute)
	mux.HandleFunc("GET /api/v1/price", handler.GetPrice)

	if preloader != nil {
		preload := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chains, err := parseChains(r.URL.Query().Get("chains"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid chains")
				return
			}
			n, err := preloader.Preload(r.Context(), chains)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "preload failed")
				return
			}
			writeJSON(w, http.StatusOK, map[string]int{"loaded": n})
		})
		if adminAPIKey != "" {
			mux.Handle("POST /api/v1/tokens/preload", requireAuth(adminAPIKey, preload))
		} else {
			mux.Handle("POST /api/v1/tokens/preload", preload)
		}
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// parseChains parses a comma-separated chain list.
func parseChains(s string) ([]domain.ChainID, error) {
	var out []domain.ChainID
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := domain.ParseChainID(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
