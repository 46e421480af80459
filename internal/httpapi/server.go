// Package httpapi serves the operational HTTP surface: a liveness
// probe, prometheus metrics, and a read-only per-product status
// endpoint backed by each Engine's Book.Snapshot(). It replaces the
// teacher's dashboard server (Hub/WS broadcast, static file serving)
// with the narrower surface this system needs — see DESIGN.md for why
// the dashboard machinery itself was not carried forward.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orderbookd/internal/book"
)

// StatusProvider exposes the books the status endpoint reports on.
type StatusProvider interface {
	BookStatuses() map[string]book.Status
}

// Server is the operational HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds a Server listening on port, serving /healthz, /metrics
// (against reg), and /status (against provider).
func New(port int, reg *prometheus.Registry, provider StatusProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(provider.BookStatuses())
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With("component", "httpapi"),
	}
}

// Start blocks serving until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("httpapi: starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
