// Package server exposes compensator synthesis over HTTP.
//
// Routes:
//
//	GET  /health         liveness
//	POST /optimize       synthesize a compensator for a plant
//	GET  /runs           saved runs, newest first
//	GET  /runs/{id}      one saved run with its series
//	GET  /metrics        Prometheus exposition
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/leadlag/internal/design"
	"github.com/san-kum/leadlag/internal/logging"
	"github.com/san-kum/leadlag/internal/lti"
	"github.com/san-kum/leadlag/internal/objective"
	"github.com/san-kum/leadlag/internal/report"
	"github.com/san-kum/leadlag/internal/storage"
)

// maxBodyBytes bounds request bodies; plants are a handful of coefficients.
const maxBodyBytes = 1 << 20

// OptimizeRequest is the body of POST /optimize.
type OptimizeRequest struct {
	Numerator           []float64 `json:"numerator"`
	Denominator         []float64 `json:"denominator"`
	TargetPhaseMargin   float64   `json:"targetPhaseMargin"`
	MinBandwidth        *float64  `json:"minBandwidth,omitempty"`
	MaxSteadyStateError *float64  `json:"maxSteadyStateError,omitempty"`
	// ProjectName labels a saved run; empty means DefaultProjectName.
	ProjectName string `json:"projectName,omitempty"`
	// Save persists the run when the server has a store.
	Save bool `json:"save,omitempty"`
}

const DefaultProjectName = "Untitled Design"

func (r OptimizeRequest) Name() string {
	if name := strings.TrimSpace(r.ProjectName); name != "" {
		return name
	}
	return DefaultProjectName
}

func (r OptimizeRequest) Spec() objective.Spec {
	return objective.Spec{
		TargetPM:            r.TargetPhaseMargin,
		MinBandwidth:        r.MinBandwidth,
		MaxSteadyStateError: r.MaxSteadyStateError,
	}
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
}

type Config struct {
	Design design.Options
	// RequestTimeout bounds the search of one request. When it fires, the
	// best compensator found so far is returned with meta.interrupted set.
	RequestTimeout time.Duration
	// Store is optional; without it runs are never persisted.
	Store *storage.Store
	Log   logr.Logger
}

type Server struct {
	cfg     Config
	log     logr.Logger
	metrics *Metrics
}

func New(cfg Config) *Server {
	log := cfg.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Server{
		cfg:     cfg,
		log:     log.WithName("server"),
		metrics: NewMetrics(),
	}
}

func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.Health)
	mux.HandleFunc("POST /optimize", s.Optimize)
	mux.HandleFunc("GET /runs", s.ListRuns)
	mux.HandleFunc("GET /runs/{id}", s.GetRun)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return LogRequest(s.log, mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"engine": report.Engine,
	})
}

func (s *Server) Optimize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context())

	var req OptimizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.metrics.observe(OutcomeInvalid, nil, 0)
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.cfg.Design
	opts.Logger = log
	session, err := design.New(req.Numerator, req.Denominator, req.Spec(), opts)
	if err != nil {
		s.metrics.observe(OutcomeInvalid, nil, 0)
		writeError(w, err.Error(), statusFor(err))
		return
	}

	searchCtx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(searchCtx, s.cfg.RequestTimeout)
		defer cancel()
	}

	res, err := session.Optimize(searchCtx)
	outcome := OutcomeSuccess
	if err != nil {
		if res == nil || !errors.Is(err, context.DeadlineExceeded) {
			s.metrics.observe(OutcomeError, res, time.Since(start))
			log.Error(err, "optimization failed")
			writeError(w, err.Error(), statusFor(err))
			return
		}
		outcome = OutcomeInterrupted
		log.Info("search timed out, returning best so far", "timeout", s.cfg.RequestTimeout)
	}
	s.metrics.observe(outcome, res, res.Duration)

	rep, err := report.Build(r.Context(), session, start)
	if err != nil {
		log.Error(err, "building response")
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if req.Save && s.cfg.Store != nil {
		id, err := s.cfg.Store.Save(storage.Run{
			Name:        req.Name(),
			Numerator:   req.Numerator,
			Denominator: req.Denominator,
			Spec:        req.Spec(),
			Report:      rep,
		})
		if err != nil {
			log.Error(err, "saving run")
		} else {
			rep.Meta.RunID = id
		}
	}

	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeJSON(w, http.StatusOK, []storage.RunMetadata{})
		return
	}
	runs, err := s.cfg.Store.List()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, "run storage disabled", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")
	if _, err := s.cfg.Store.Load(id); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := s.cfg.Store.ExportJSON(w, id); err != nil {
		logging.FromContext(r.Context()).Error(err, "exporting run", "id", id)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, lti.ErrInvalidModel),
		errors.Is(err, objective.ErrInvalidSpec),
		errors.Is(err, design.ErrUnknownStrategy),
		errors.Is(err, storage.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, ErrorResponse{Error: message, Code: code})
}
