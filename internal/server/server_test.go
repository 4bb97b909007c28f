package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrambleopt/scrambleopt/internal/config"
	"github.com/scrambleopt/scrambleopt/internal/optimization"
	"github.com/scrambleopt/scrambleopt/internal/optimization/catalog"
	"github.com/scrambleopt/scrambleopt/internal/optimization/driver"
	"github.com/scrambleopt/scrambleopt/internal/store"
)

func testServer(t *testing.T) (*Server, chi.Router, *store.FSStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Runs.MaxConcurrent = 4

	st, err := store.NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)

	srv := NewServer(cfg, zap.NewNop(), driver.New(catalog.Default()), st)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r, st
}

func startBody(t *testing.T, cfg optimization.RunConfig) *bytes.Buffer {
	t.Helper()
	req := startRequest{Config: cfg}
	req.Grid.Rows = 4
	req.Grid.Cols = 4
	req.Grid.Domain = optimization.Domain{Min: 0, Max: 3}
	req.Grid.Cells = []float64{3, 1, 0, 2, 2, 0, 3, 1, 1, 3, 2, 0, 0, 2, 1, 3}

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(req))
	return &buf
}

func quickConfig() optimization.RunConfig {
	return optimization.RunConfig{
		Solver:        "hillclimb",
		Perturbers:    map[string]float64{"swap": 1},
		Objective:     optimization.ObjectiveConfig{Name: "terrain"},
		Seed:          42,
		MaxIterations: 200,
		HillClimb:     optimization.HillClimbConfig{MaxStall: 200},
	}
}

func longConfig() optimization.RunConfig {
	cfg := quickConfig()
	cfg.Solver = "tabu"
	cfg.MaxIterations = 1 << 30
	cfg.Tabu = optimization.TabuConfig{Tenure: 8, MaxStall: 1 << 30}
	return cfg
}

func startRun(t *testing.T, r chi.Router, cfg optimization.RunConfig) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", startBody(t, cfg)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["id"])
	return resp["id"]
}

func waitTerminal(t *testing.T, srv *Server, id string) *optimization.RunResult {
	t.Helper()
	rn, ok := srv.lookup(id)
	require.True(t, ok)
	select {
	case <-rn.Handle.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish in time")
	}
	res, err := rn.Handle.TryResult()
	require.NoError(t, err)
	return res
}

func TestStartAndFetchResult(t *testing.T) {
	srv, r, _ := testServer(t)
	id := startRun(t, r, quickConfig())
	res := waitTerminal(t, srv, id)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+id+"/result", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(optimization.OutcomeCompleted), body["outcome"])
	assert.Equal(t, res.BestScore.Value, body["best_value"])
	assert.NotNil(t, body["grid"])
}

func TestResultConflictWhileRunning(t *testing.T) {
	_, r, _ := testServer(t)
	id := startRun(t, r, longConfig())
	defer cancelRun(t, r, id)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+id+"/result", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func cancelRun(t *testing.T, r chi.Router, id string) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+id+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCancelRun(t *testing.T) {
	srv, r, _ := testServer(t)
	id := startRun(t, r, longConfig())
	cancelRun(t, r, id)

	res := waitTerminal(t, srv, id)
	assert.Equal(t, optimization.OutcomeCancelled, res.Outcome)
}

func TestPauseResume(t *testing.T) {
	srv, r, _ := testServer(t)
	id := startRun(t, r, longConfig())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+id+"/pause", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rn, ok := srv.lookup(id)
	require.True(t, ok)
	require.Eventually(t, func() bool { return rn.Handle.State() == driver.StatePaused },
		5*time.Second, time.Millisecond)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+id+"/resume", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cancelRun(t, r, id)
	waitTerminal(t, srv, id)

	// Lifecycle methods on a terminal run are rejected.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+id+"/pause", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartRejectsBadConfig(t *testing.T) {
	_, r, _ := testServer(t)

	cfg := quickConfig()
	cfg.Perturbers = map[string]float64{"swap": 0}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", startBody(t, cfg)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs",
		strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRunIs404(t *testing.T) {
	_, r, _ := testServer(t)
	for _, path := range []string{
		"/api/v1/runs/ghost",
		"/api/v1/runs/ghost/result",
		"/api/v1/runs/ghost/events",
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestListAndStatus(t *testing.T) {
	srv, r, _ := testServer(t)
	id := startRun(t, r, quickConfig())
	waitTerminal(t, srv, id)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, string(driver.StateCompleted), status["state"])
}

func TestFinishedRunIsPersisted(t *testing.T) {
	srv, r, st := testServer(t)
	id := startRun(t, r, quickConfig())
	res := waitTerminal(t, srv, id)

	// The monitor goroutine persists after the handle closes; poll briefly.
	require.Eventually(t, func() bool {
		_, err := st.Load(id)
		return err == nil
	}, 5*time.Second, 5*time.Millisecond)

	rec, err := st.Load(id)
	require.NoError(t, err)
	assert.Equal(t, res.BestScore.Value, rec.BestValue)
	assert.Equal(t, optimization.OutcomeCompleted, rec.Outcome)
}

func TestEventStreamDeliversFinalEvent(t *testing.T) {
	srv, r, _ := testServer(t)
	ts := httptest.NewServer(r)
	defer ts.Close()

	id := startRun(t, r, longConfig())

	resp, err := http.Get(ts.URL + "/api/v1/runs/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	cancelRun(t, r, id)
	waitTerminal(t, srv, id)

	sc := bufio.NewScanner(resp.Body)
	deadline := time.After(10 * time.Second)
	events := make(chan ProgressEvent, 16)
	go func() {
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev ProgressEvent
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev) == nil {
				events <- ev
			}
		}
		close(events)
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("stream ended without a final event")
			}
			require.Equal(t, id, ev.RunID)
			if ev.Final {
				return
			}
		case <-deadline:
			t.Fatal("no final event within deadline")
		}
	}
}

func TestConcurrentRunCap(t *testing.T) {
	srv, r, _ := testServer(t)
	srv.cfg.Runs.MaxConcurrent = 1

	id := startRun(t, r, longConfig())
	defer func() {
		cancelRun(t, r, id)
		waitTerminal(t, srv, id)
	}()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", startBody(t, longConfig())))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
