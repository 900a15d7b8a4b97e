// Package server exposes the agent's monitoring surface over HTTP: liveness,
// readiness, metrics, the current status snapshot, recent events, on-demand
// port probes and a websocket status stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hostwatchhq/agent/internal/events"
	"github.com/hostwatchhq/agent/internal/health"
	"github.com/hostwatchhq/agent/internal/metrics"
	"github.com/hostwatchhq/agent/internal/netprobe"
	"github.com/hostwatchhq/agent/pkg/types"
)

const defaultPushInterval = 5 * time.Second

// StatusSource exposes the monitor's current verdict.
type StatusSource interface {
	Snapshot() types.StatusSnapshot
}

// PortProber runs one on-demand port test from raw request input.
type PortProber interface {
	ProbeInput(ctx context.Context, rawPort, rawHost string) (types.ProbeResult, error)
}

// Dependencies collects the collaborators the server publishes.
type Dependencies struct {
	Metrics *metrics.Store
	Health  *health.Checker
	Status  StatusSource
	Prober  PortProber
	Events  *events.Ring
	Logger  *log.Logger
}

type Server struct {
	httpServer   *http.Server
	deps         Dependencies
	pushInterval time.Duration
	logger       *log.Logger
}

type Option func(*Server)

// WithPushInterval sets how often the websocket stream republishes the
// status snapshot.
func WithPushInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pushInterval = d
		}
	}
}

func New(addr string, deps Dependencies, opts ...Option) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer:   &http.Server{Addr: addr, Handler: mux},
		deps:         deps,
		pushInterval: defaultPushInterval,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes(mux)
	return s
}

// Handler returns the configured mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("monitoring surface listening on http://%s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", s.handleReady)
	if s.deps.Metrics != nil {
		mux.Handle("/metrics", metrics.NewHTTPHandler(s.deps.Metrics))
	}
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/probe", s.handleProbe)
	mux.HandleFunc("/ws/status", s.handleStatusWS)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	ready, reasons := s.deps.Health.Ready(time.Now().UTC())
	if !ready {
		http.Error(w, strings.Join(reasons, "; "), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Status == nil {
		http.Error(w, "monitor not running", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Status.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeJSON(w, http.StatusOK, []types.Event{})
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = value
	}
	recent := s.deps.Events.Recent(limit)
	if recent == nil {
		recent = []types.Event{}
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if s.deps.Prober == nil {
		http.Error(w, "prober unavailable", http.StatusServiceUnavailable)
		return
	}

	rawPort := r.URL.Query().Get("port")
	rawHost := r.URL.Query().Get("host")

	res, err := s.deps.Prober.ProbeInput(r.Context(), rawPort, rawHost)
	if err != nil {
		if netprobe.IsInvalidInput(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
