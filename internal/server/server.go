// Package server exposes optimization runs over HTTP: starting runs,
// controlling their lifecycle and streaming progress.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrambleopt/scrambleopt/internal/config"
	"github.com/scrambleopt/scrambleopt/internal/optimization"
	"github.com/scrambleopt/scrambleopt/internal/optimization/driver"
	"github.com/scrambleopt/scrambleopt/internal/raster"
	"github.com/scrambleopt/scrambleopt/internal/store"
)

// run tracks one live or finished optimization run.
type run struct {
	ID        string
	CreatedAt time.Time
	Config    optimization.RunConfig
	Handle    *driver.Handle
}

// Server manages optimization runs behind the HTTP API. All exported
// methods are safe for concurrent use.
type Server struct {
	cfg    *config.Config
	log    *zap.Logger
	driver *driver.Driver
	store  store.Store
	events *EventBroadcaster

	mu   sync.RWMutex
	runs map[string]*run
}

// NewServer creates a server. The store may be nil, in which case finished
// runs are not persisted.
func NewServer(cfg *config.Config, log *zap.Logger, d *driver.Driver, st store.Store) *Server {
	return &Server{
		cfg:    cfg,
		log:    log,
		driver: d,
		store:  st,
		events: NewEventBroadcaster(log),
		runs:   make(map[string]*run),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Post("/cancel", s.handleCancel)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Get("/result", s.handleResult)
			r.Get("/events", s.handleEvents)
		})
	})
}

// startRequest is the POST /runs body: an inline initial grid plus the run
// configuration.
type startRequest struct {
	Grid struct {
		Rows   int                 `json:"rows"`
		Cols   int                 `json:"cols"`
		Domain optimization.Domain `json:"domain"`
		Cells  []float64           `json:"cells,omitempty"`
	} `json:"grid"`
	Config optimization.RunConfig `json:"config"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	grid, err := optimization.NewGrid(req.Grid.Rows, req.Grid.Cols, req.Grid.Domain, req.Grid.Cells)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	if max := s.cfg.Runs.MaxConcurrent; max > 0 && s.liveRuns() >= max {
		s.respondError(w, http.StatusTooManyRequests, "too many live runs")
		return
	}

	h, err := s.driver.Start(r.Context(), req.Config, grid)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	rn := &run{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Config:    h.Config(),
		Handle:    h,
	}
	s.mu.Lock()
	s.runs[rn.ID] = rn
	s.mu.Unlock()

	go s.monitor(rn)

	s.log.Info("run started",
		zap.String("id", rn.ID),
		zap.String("solver", rn.Config.Solver),
		zap.Int64("seed", rn.Config.Seed),
	)
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"id":    rn.ID,
		"state": string(h.State()),
	})
}

// monitor follows one run to completion, forwarding progress ticks to
// subscribed clients and persisting the final result.
func (s *Server) monitor(rn *run) {
	for p := range rn.Handle.Progress() {
		s.events.Broadcast(ProgressEvent{
			RunID:     rn.ID,
			State:     rn.Handle.State(),
			Iteration: p.Iteration,
			Current:   p.CurrentValue,
			Best:      p.BestValue,
			Accepted:  p.Accepted,
			Elapsed:   p.Elapsed.Seconds(),
			Timestamp: time.Now().UTC(),
		})
	}

	res, err := rn.Handle.TryResult()
	if err != nil {
		s.log.Error("run ended without a result", zap.String("id", rn.ID), zap.Error(err))
		return
	}
	s.events.Broadcast(ProgressEvent{
		RunID:     rn.ID,
		State:     rn.Handle.State(),
		Iteration: res.Iterations,
		Current:   res.BestScore.Value,
		Best:      res.BestScore.Value,
		Accepted:  res.Accepted,
		Elapsed:   res.Elapsed.Seconds(),
		Final:     true,
		Timestamp: time.Now().UTC(),
	})
	s.events.CleanupRun(rn.ID)

	if s.store != nil {
		if err := s.store.Save(store.NewRecord(rn.ID, rn.Config, res, raster.Georeference{})); err != nil {
			s.log.Error("persist run record", zap.String("id", rn.ID), zap.Error(err))
		}
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]map[string]interface{}, 0, len(s.runs))
	for _, rn := range s.runs {
		out = append(out, s.runSummary(rn))
	}
	s.mu.RUnlock()
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	s.respondJSON(w, http.StatusOK, s.runSummary(rn))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	rn.Handle.Cancel()
	s.respondJSON(w, http.StatusOK, map[string]string{"state": string(rn.Handle.State())})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err := rn.Handle.Pause(); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"state": string(rn.Handle.State())})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err := rn.Handle.Resume(); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"state": string(rn.Handle.State())})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	res, err := rn.Handle.TryResult()
	if err != nil {
		s.respondError(w, http.StatusConflict, "run still in progress")
		return
	}

	body := map[string]interface{}{
		"id":         rn.ID,
		"outcome":    res.Outcome,
		"reason":     res.Reason,
		"best_value": res.BestScore.Value,
		"components": res.BestScore.Components,
		"iterations": res.Iterations,
		"accepted":   res.Accepted,
		"elapsed":    res.Elapsed.String(),
		"seed":       res.Seed,
	}
	if res.Best != nil {
		body["grid"] = map[string]interface{}{
			"rows":  res.Best.Rows(),
			"cols":  res.Best.Cols(),
			"cells": res.Best.Values(),
		}
	}
	if res.Err != nil {
		body["error"] = res.Err.Error()
	}
	s.respondJSON(w, http.StatusOK, body)
}

func (s *Server) lookup(id string) (*run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rn, ok := s.runs[id]
	return rn, ok
}

func (s *Server) liveRuns() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rn := range s.runs {
		if !rn.Handle.State().Terminal() {
			n++
		}
	}
	return n
}

func (s *Server) runSummary(rn *run) map[string]interface{} {
	summary := map[string]interface{}{
		"id":         rn.ID,
		"created_at": rn.CreatedAt,
		"state":      rn.Handle.State(),
		"solver":     rn.Config.Solver,
		"seed":       rn.Config.Seed,
	}
	if res, err := rn.Handle.TryResult(); err == nil {
		summary["outcome"] = res.Outcome
		summary["best_value"] = res.BestScore.Value
		summary["iterations"] = res.Iterations
	}
	return summary
}

// respondDomainError maps the error taxonomy onto HTTP status codes.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case optimization.IsConfigError(err):
		status = http.StatusBadRequest
	case optimization.IsLoadError(err):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}
