// Package server exposes a live simulation over HTTP: health and metrics
// endpoints, a WebSocket round stream and pause/resume/step/stop controls.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/engine"
	"ekon-lab/internal/observability"
	"ekon-lab/internal/observer"
	"ekon-lab/internal/stream"
)

// Options configures a Server. Controller is required; the rest are optional.
type Options struct {
	Controller *observer.Controller
	Final      *observer.FinalState
	Hub        *stream.Hub
	Gatherer   prometheus.Gatherer
	State      func() engine.State
	Logger     *slog.Logger
}

// Server routes HTTP requests to a live simulation.
type Server struct {
	opts   Options
	logger *slog.Logger
	router chi.Router
}

// StateResponse is returned by GET /api/v1/sim/state.
type StateResponse struct {
	Engine     string                    `json:"engine"`
	Controller observer.ControllerStatus `json:"controller"`
	Snapshot   *domain.RoundSnapshot     `json:"snapshot,omitempty"`
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", observability.Handler(opts.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if opts.Hub != nil {
			r.Get("/ws", opts.Hub.HandleWS)
		}
		r.Route("/sim", func(r chi.Router) {
			// Bounded handlers only; the WebSocket route above must not time out.
			r.Use(middleware.Timeout(10 * time.Second))
			r.Get("/state", s.state)
			r.Post("/pause", s.control("pause", opts.Controller.Pause))
			r.Post("/resume", s.control("resume", opts.Controller.Resume))
			r.Post("/step", s.control("step", opts.Controller.Step))
			r.Post("/stop", s.control("stop", opts.Controller.Stop))
		})
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ekon-lab",
	})
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	resp := StateResponse{
		Engine:     "unknown",
		Controller: s.opts.Controller.Status(),
	}
	if s.opts.State != nil {
		resp.Engine = s.opts.State().String()
	}
	if s.opts.Final != nil {
		resp.Snapshot = s.opts.Final.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

// control applies fn and answers with the resulting controller status,
// which is also pushed to stream clients.
func (s *Server) control(name string, fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fn()
		status := s.opts.Controller.Status()
		s.logger.Info("sim control", "action", name, "paused", status.Paused, "stopped", status.Stopped, "round", status.Round)
		if s.opts.Hub != nil {
			s.opts.Hub.Broadcast(stream.Message{Type: stream.TypeStatus, Round: status.Round, Data: status})
		}
		writeJSON(w, http.StatusAccepted, status)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
