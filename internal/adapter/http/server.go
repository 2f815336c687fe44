package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skybrief/avwx-risk/internal/cache"
)

// ReadinessChecker reports whether at least one assessment cycle has
// completed and the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness() bool
}

// CacheController exposes the upstream response cache for inspection
// and manual invalidation.
type CacheController interface {
	CacheStats() cache.Stats
	ClearCache()
}

// Server exposes health, readiness, metrics, and cache admin endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// and the cache admin routes.
func NewServer(addr string, ready ReadinessChecker, cacheCtl CacheController, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /cache/stats", handleCacheStats(cacheCtl))
	mux.HandleFunc("POST /cache/flush", s.handleCacheFlush(cacheCtl))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !checker.CheckReadiness() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  "no assessment completed yet",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleCacheStats(cacheCtl CacheController) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, cacheCtl.CacheStats())
	}
}

func (s *Server) handleCacheFlush(cacheCtl CacheController) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		cacheCtl.ClearCache()
		s.logger.Info("cache flushed by request")
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Cache cleared successfully",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
