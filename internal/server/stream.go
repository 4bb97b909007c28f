package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrambleopt/scrambleopt/internal/optimization/driver"
)

// ProgressEvent is one server-sent progress update.
type ProgressEvent struct {
	RunID     string          `json:"runId"`
	State     driver.RunState `json:"state"`
	Iteration int             `json:"iteration"`
	Current   float64         `json:"current"`
	Best      float64         `json:"best"`
	Accepted  int             `json:"accepted"`
	Elapsed   float64         `json:"elapsedSeconds"`
	Final     bool            `json:"final,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventBroadcaster fans progress events out to SSE subscribers per run.
type EventBroadcaster struct {
	log *zap.Logger

	mu        sync.RWMutex
	clients   map[string]map[chan ProgressEvent]bool
	lastEvent map[string]ProgressEvent
}

func NewEventBroadcaster(log *zap.Logger) *EventBroadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventBroadcaster{
		log:       log,
		clients:   make(map[string]map[chan ProgressEvent]bool),
		lastEvent: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a client for a run's events. Reconnecting clients
// immediately receive the most recent event.
func (eb *EventBroadcaster) Subscribe(runID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, 10)
	if eb.clients[runID] == nil {
		eb.clients[runID] = make(map[chan ProgressEvent]bool)
	}
	eb.clients[runID][ch] = true

	if last, ok := eb.lastEvent[runID]; ok {
		ch <- last
	}
	return ch
}

// Unsubscribe removes and closes a client channel.
func (eb *EventBroadcaster) Unsubscribe(runID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if clients, ok := eb.clients[runID]; ok {
		if clients[ch] {
			delete(clients, ch)
			close(ch)
		}
		if len(clients) == 0 {
			delete(eb.clients, runID)
		}
	}
}

// Broadcast delivers an event to every subscriber of the run. Slow clients
// are skipped rather than blocking the run's monitor.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.lastEvent[event.RunID] = event
	for ch := range eb.clients[event.RunID] {
		select {
		case ch <- event:
		default:
			eb.log.Warn("event channel full, dropping tick", zap.String("run_id", event.RunID))
		}
	}
}

// CleanupRun closes all subscriber channels for a finished run.
func (eb *EventBroadcaster) CleanupRun(runID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.clients[runID] {
		close(ch)
	}
	delete(eb.clients, runID)
}

// handleEvents streams a run's progress as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.events.Subscribe(rn.ID)
	defer s.events.Unsubscribe(rn.ID, ch)

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				return
			}
			flusher.Flush()
			if event.Final {
				return
			}
		case <-ping.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
