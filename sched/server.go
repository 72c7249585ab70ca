package sched

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sbs27/salespipe/log"
	"github.com/sbs27/salespipe/metrics"
	"github.com/sbs27/salespipe/types"
)

// shutdownGrace bounds how long Serve waits for in-flight requests
// once its context is canceled.
const shutdownGrace = 5 * time.Second

// Server exposes the scheduler control API over HTTP.
// All responses are JSON, including 404 and 405.
type Server struct {
	scheduler *Scheduler
	collector *metrics.Collector
	logger    *log.Logger
}

// NewServer creates a control API server for the given scheduler.
// The collector backs /metrics and may be nil.
func NewServer(scheduler *Scheduler, collector *metrics.Collector, logger *log.Logger) *Server {
	return &Server{
		scheduler: scheduler,
		collector: collector,
		logger:    logger.WithComponent("control-api"),
	}
}

// Handler returns the routed control API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/run-now", s.handleRunNow)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/schedule", s.handleSchedule)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return mux
}

// Serve listens on addr until ctx is canceled, then drains in-flight
// requests. Returns nil after a clean shutdown; a non-nil error means
// the listener failed.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("control api listening", map[string]any{
		"addr": addr,
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.logger.Info("control api shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	}
}

// handleIndex serves the route index at "/" and a JSON 404 for every
// unmatched path the mux falls through to it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"service": "salespipe",
		"version": types.Version,
		"routes": []string{
			"/health",
			"/run-now",
			"/status",
			"/schedule",
			"/metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": types.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRunNow acknowledges the trigger, not the run: 202 means the
// run was handed to a background goroutine, 409 means one was already
// in flight and the request was dropped, not queued.
func (s *Server) handleRunNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.scheduler.TriggerNow() {
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"triggered": false,
			"reason":    "already running",
		})
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"triggered": true,
		"message":   "run started",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := s.scheduler.Status()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"interval":         s.scheduler.config.Interval.String(),
		"interval_seconds": status.IntervalSeconds,
		"last_run_at":      status.LastRunAt,
		"next_run_at":      status.NextRunAt,
		"is_running":       status.IsRunning,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", map[string]any{
			"error": err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
