// Package server exposes the replay runner's commands and observable state
// over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ivikasavnish/go-replay/pkg/configstore"
	"github.com/ivikasavnish/go-replay/pkg/history"
	"github.com/ivikasavnish/go-replay/pkg/replay"
)

// Option configures a Server.
type Option func(*Server)

// WithHistory attaches a run-history store for the /history endpoints.
func WithHistory(store *history.Store) Option {
	return func(s *Server) { s.history = store }
}

// WithConfigDir sets the directory the /configs listing scans.
func WithConfigDir(dir string) Option {
	return func(s *Server) { s.configDir = dir }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// Server routes runner commands and state reads.
type Server struct {
	runner    *replay.Runner
	history   *history.Store
	configDir string
	router    *mux.Router
	log       *zap.Logger
}

// NewServer creates a server around the given runner.
func NewServer(runner *replay.Runner, opts ...Option) *Server {
	s := &Server{
		runner: runner,
		router: mux.NewRouter(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/run/load", s.handleLoad).Methods("POST")
	s.router.HandleFunc("/run/start", s.handleStart).Methods("POST")
	s.router.HandleFunc("/run/pause", s.handlePause).Methods("POST")
	s.router.HandleFunc("/run/stop", s.handleStop).Methods("POST")
	s.router.HandleFunc("/run/reset", s.handleReset).Methods("POST")
	s.router.HandleFunc("/run/settings", s.handleSettings).Methods("PUT")

	s.router.HandleFunc("/run/state", s.handleState).Methods("GET")
	s.router.HandleFunc("/run/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/run/outcomes", s.handleOutcomes).Methods("GET")
	s.router.HandleFunc("/run/logs", s.handleLogs).Methods("GET")
	s.router.HandleFunc("/run/summary", s.handleSummary).Methods("GET")

	s.router.HandleFunc("/configs", s.handleConfigs).Methods("GET")
	s.router.HandleFunc("/history/runs", s.handleHistoryRuns).Methods("GET")
	s.router.HandleFunc("/history/runs/{id}/outcomes", s.handleHistoryOutcomes).Methods("GET")
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start starts the server on the specified address.
func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// commandStatus maps runner command failures onto HTTP statuses.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, replay.ErrInvalidState),
		errors.Is(err, replay.ErrAlreadyRunning),
		errors.Is(err, replay.ErrNoConfiguration):
		return http.StatusConflict
	case errors.Is(err, replay.ErrNilConfiguration),
		errors.Is(err, replay.ErrInvalidConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type LoadRequest struct {
	Path          string                `json:"path,omitempty"`
	Configuration *replay.Configuration `json:"configuration,omitempty"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg := req.Configuration
	if cfg == nil {
		if req.Path == "" {
			writeError(w, http.StatusBadRequest, replay.ErrNilConfiguration)
			return
		}
		loaded, err := configstore.Load(req.Path)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, os.ErrNotExist) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		cfg = loaded
	}

	if err := s.runner.Load(cfg); err != nil {
		writeError(w, commandStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"config":  cfg.Name,
		"actions": len(cfg.Actions),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.command(w, s.runner.Start())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.command(w, s.runner.Pause())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.command(w, s.runner.Stop())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.command(w, s.runner.Reset())
}

func (s *Server) command(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, commandStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": string(s.runner.Status()),
	})
}

type SettingsRequest struct {
	SpeedMultiplier *float64 `json:"speed_multiplier,omitempty"`
	HumanDelay      *bool    `json:"human_delay,omitempty"`
	StopOnError     *bool    `json:"stop_on_error,omitempty"`
}

// handleSettings applies run-time policies. Policies are frozen at run
// start, so changes are only accepted while the runner is idle.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.runner.Status() != replay.StatusIdle {
		writeError(w, http.StatusConflict, replay.ErrInvalidState)
		return
	}

	if req.SpeedMultiplier != nil {
		if err := s.runner.SetSpeed(*req.SpeedMultiplier); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.HumanDelay != nil {
		s.runner.SetHumanDelay(*req.HumanDelay)
	}
	if req.StopOnError != nil {
		s.runner.SetStopOnError(*req.StopOnError)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": s.runner.Status(),
		"cursor": s.runner.Cursor(),
	})
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Outcomes())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Logs())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary := s.runner.Summary()
	if summary == nil {
		writeError(w, http.StatusNotFound, errors.New("no run summary yet"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleConfigs(w http.ResponseWriter, r *http.Request) {
	if s.configDir == "" {
		writeError(w, http.StatusNotFound, errors.New("no configuration directory configured"))
		return
	}
	entries, err := configstore.Scan(s.configDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []configstore.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistoryRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errors.New("run history not configured"))
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	runs, err := s.history.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleHistoryOutcomes(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errors.New("run history not configured"))
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	outcomes, err := s.history.Outcomes(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if outcomes == nil {
		outcomes = []replay.ActionOutcome{}
	}
	writeJSON(w, http.StatusOK, outcomes)
}
