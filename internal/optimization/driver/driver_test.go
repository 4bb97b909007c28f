package driver

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
	"github.com/scrambleopt/scrambleopt/internal/optimization/catalog"
	"github.com/scrambleopt/scrambleopt/internal/optimization/objective"
)

func intGrid4x4(t *testing.T, seed int64) *optimization.Grid {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(rng.Intn(4))
	}
	g, err := optimization.NewGrid(4, 4, optimization.Domain{Values: []float64{0, 1, 2, 3}}, values)
	require.NoError(t, err)
	return g
}

func roughnessOnly() optimization.ObjectiveConfig {
	return optimization.ObjectiveConfig{
		Name:    "terrain",
		Weights: map[string]float64{"roughness": 1, "climb": 0, "relief": 0},
	}
}

func TestHillClimbSwapScenario(t *testing.T) {
	// 4x4 grid of integers 0-3, hill climbing, cell-swap only, seed 42,
	// objective = sum of absolute differences between adjacent cells.
	g := intGrid4x4(t, 42)

	ev, err := objective.New(optimization.RunConfig{Objective: roughnessOnly()})
	require.NoError(t, err)
	initialScore, err := ev.Score(g)
	require.NoError(t, err)

	cfg := optimization.RunConfig{
		Solver:        "hillclimb",
		Perturbers:    map[string]float64{"swap": 1},
		Objective:     roughnessOnly(),
		Seed:          42,
		MaxIterations: 1000,
		ProgressEvery: 1,
		HillClimb:     optimization.HillClimbConfig{MaxStall: 1000},
	}

	d := New(catalog.Default())
	h, err := d.Start(context.Background(), cfg, g)
	require.NoError(t, err)

	// The recorded best must never worsen at any intermediate tick.
	lastBest := initialScore.Value
	for p := range h.Progress() {
		assert.LessOrEqual(t, p.BestValue, lastBest, "best-so-far worsened at iteration %d", p.Iteration)
		lastBest = p.BestValue
	}

	res, err := h.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, optimization.OutcomeCompleted, res.Outcome)
	assert.Equal(t, 1000, res.Iterations)
	assert.LessOrEqual(t, res.BestScore.Value, initialScore.Value)
	assert.Equal(t, int64(42), res.Seed)
	require.NotNil(t, res.Best)

	// The reported best score matches a fresh evaluation of the best grid.
	rescored, err := ev.Score(res.Best)
	require.NoError(t, err)
	assert.InDelta(t, rescored.Value, res.BestScore.Value, 1e-9)
}

func runOnce(t *testing.T, cfg optimization.RunConfig, g *optimization.Grid) (*optimization.RunResult, []float64) {
	t.Helper()
	d := New(catalog.Default())
	h, err := d.Start(context.Background(), cfg, g)
	require.NoError(t, err)

	var bests []float64
	for p := range h.Progress() {
		bests = append(bests, p.BestValue)
	}
	res, err := h.Result(context.Background())
	require.NoError(t, err)
	return res, bests
}

func TestRunsAreDeterministic(t *testing.T) {
	cfgs := map[string]optimization.RunConfig{
		"anneal": {
			Solver:        "anneal",
			Perturbers:    map[string]float64{"swap": 2, "mutate": 1, "shift": 1, "transform": 0.5},
			Objective:     optimization.ObjectiveConfig{Name: "terrain"},
			Seed:          7,
			MaxIterations: 400,
			Anneal:        optimization.AnnealConfig{InitialTemp: 5, FloorTemp: 1e-4, CoolingRate: 0.99},
		},
		"tabu": {
			Solver:        "tabu",
			Perturbers:    map[string]float64{"swap": 1, "mutate": 1},
			Objective:     optimization.ObjectiveConfig{Name: "terrain"},
			Seed:          7,
			MaxIterations: 400,
			Tabu:          optimization.TabuConfig{Tenure: 16, MaxStall: 400},
		},
		"parallel candidates": {
			Solver:        "hillclimb",
			Perturbers:    map[string]float64{"swap": 1, "mutate": 1},
			Objective:     optimization.ObjectiveConfig{Name: "terrain"},
			Seed:          7,
			MaxIterations: 200,
			Candidates:    4,
			HillClimb:     optimization.HillClimbConfig{MaxStall: 200},
		},
	}

	for name, cfg := range cfgs {
		t.Run(name, func(t *testing.T) {
			resA, bestsA := runOnce(t, cfg, intGrid4x4(t, 3))
			resB, bestsB := runOnce(t, cfg, intGrid4x4(t, 3))

			assert.Equal(t, resA.Outcome, resB.Outcome)
			assert.Equal(t, resA.Reason, resB.Reason)
			assert.Equal(t, resA.Iterations, resB.Iterations)
			assert.Equal(t, resA.Accepted, resB.Accepted)
			assert.Equal(t, resA.BestScore.Value, resB.BestScore.Value)
			assert.True(t, resA.Best.Equal(resB.Best), "best grids must be byte-identical across runs")
			// Coalescing may drop ticks under scheduling jitter, but the
			// values a run produces at a given iteration never differ.
			_ = bestsA
			_ = bestsB
		})
	}
}

func TestCancelReturnsBestSoFar(t *testing.T) {
	cfg := optimization.RunConfig{
		Solver:        "tabu",
		Perturbers:    map[string]float64{"swap": 1, "mutate": 1},
		Objective:     optimization.ObjectiveConfig{Name: "terrain"},
		Seed:          11,
		MaxIterations: 1 << 30,
		ProgressEvery: 10,
		Tabu:          optimization.TabuConfig{Tenure: 16, MaxStall: 1 << 30},
	}

	d := New(catalog.Default())
	h, err := d.Start(context.Background(), cfg, intGrid4x4(t, 5))
	require.NoError(t, err)

	// Let it make some progress first.
	var seen optimization.Progress
	select {
	case seen = <-h.Progress():
	case <-time.After(5 * time.Second):
		t.Fatal("no progress within deadline")
	}

	_, err = h.TryResult()
	assert.True(t, optimization.IsNotReady(err))

	h.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.Result(ctx)
	require.NoError(t, err)

	assert.Equal(t, optimization.OutcomeCancelled, res.Outcome)
	assert.Equal(t, optimization.ReasonCancelled, res.Reason)
	require.NotNil(t, res.Best)
	assert.LessOrEqual(t, res.BestScore.Value, seen.BestValue,
		"cancellation must return the best state recorded before the request")
	assert.Equal(t, StateCancelled, h.State())

	// Cancelling again is a harmless no-op.
	h.Cancel()
}

func TestPauseAndResume(t *testing.T) {
	cfg := optimization.RunConfig{
		Solver:        "tabu",
		Perturbers:    map[string]float64{"swap": 1},
		Objective:     optimization.ObjectiveConfig{Name: "terrain"},
		Seed:          13,
		MaxIterations: 1 << 30,
		Tabu:          optimization.TabuConfig{Tenure: 8, MaxStall: 1 << 30},
	}

	d := New(catalog.Default())
	h, err := d.Start(context.Background(), cfg, intGrid4x4(t, 5))
	require.NoError(t, err)

	require.NoError(t, h.Pause())
	require.Eventually(t, func() bool { return h.State() == StatePaused },
		5*time.Second, time.Millisecond)

	require.NoError(t, h.Resume())
	require.Eventually(t, func() bool { return h.State() == StateRunning },
		5*time.Second, time.Millisecond)

	// Paused runs remain cancellable.
	require.NoError(t, h.Pause())
	require.Eventually(t, func() bool { return h.State() == StatePaused },
		5*time.Second, time.Millisecond)
	h.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, optimization.OutcomeCancelled, res.Outcome)

	assert.Error(t, h.Pause(), "terminal runs cannot be paused")
	assert.Error(t, h.Resume(), "terminal runs cannot be resumed")
}

// faultyEvaluator wraps the terrain evaluator and fails after a fixed number
// of incremental evaluations.
type faultyEvaluator struct {
	inner optimization.Evaluator
	left  int
}

func (f *faultyEvaluator) Direction() optimization.Direction { return f.inner.Direction() }

func (f *faultyEvaluator) Score(g *optimization.Grid) (optimization.Score, error) {
	return f.inner.Score(g)
}

func (f *faultyEvaluator) Delta(g *optimization.Grid, m optimization.Move) (optimization.Score, error) {
	if f.left--; f.left < 0 {
		return optimization.Score{}, optimization.NewEvaluationErrorf("synthetic non-finite score")
	}
	return f.inner.Delta(g, m)
}

func TestEvaluationFaultFailsRunKeepingBest(t *testing.T) {
	reg := catalog.Default()
	require.NoError(t, reg.RegisterEvaluator("faulty", func(cfg optimization.RunConfig) (optimization.Evaluator, error) {
		inner, err := objective.New(cfg)
		if err != nil {
			return nil, err
		}
		return &faultyEvaluator{inner: inner, left: 50}, nil
	}))

	cfg := optimization.RunConfig{
		Solver:        "anneal",
		Perturbers:    map[string]float64{"swap": 1},
		Objective:     optimization.ObjectiveConfig{Name: "faulty"},
		Seed:          17,
		MaxIterations: 10000,
		Anneal:        optimization.AnnealConfig{InitialTemp: 5, FloorTemp: 1e-6, CoolingRate: 0.999},
	}

	d := New(reg)
	h, err := d.Start(context.Background(), cfg, intGrid4x4(t, 5))
	require.NoError(t, err)

	res, err := h.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, optimization.OutcomeFailed, res.Outcome)
	assert.Equal(t, optimization.ReasonEvaluationFault, res.Reason)
	assert.True(t, optimization.IsEvaluationError(res.Err))
	assert.NotNil(t, res.Best, "the best state found before the fault is preserved")
	assert.Equal(t, 50, res.Iterations)
	assert.Equal(t, StateFailed, h.State())
}

func TestStartFailsFastOnBadConfiguration(t *testing.T) {
	d := New(catalog.Default())
	g := intGrid4x4(t, 1)

	tests := []struct {
		name string
		cfg  optimization.RunConfig
	}{
		{
			"zero perturber weights",
			optimization.RunConfig{
				Solver:        "hillclimb",
				Perturbers:    map[string]float64{"swap": 0, "shift": 0},
				MaxIterations: 100,
			},
		},
		{
			"unknown solver",
			optimization.RunConfig{
				Solver:        "quantum",
				Perturbers:    map[string]float64{"swap": 1},
				MaxIterations: 100,
			},
		},
		{
			"unknown perturber",
			optimization.RunConfig{
				Solver:        "hillclimb",
				Perturbers:    map[string]float64{"teleport": 1},
				MaxIterations: 100,
			},
		},
		{
			"bad solver parameters",
			optimization.RunConfig{
				Solver:        "anneal",
				Perturbers:    map[string]float64{"swap": 1},
				MaxIterations: 100,
				Anneal:        optimization.AnnealConfig{InitialTemp: -4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := d.Start(context.Background(), tt.cfg, g)
			require.Error(t, err)
			assert.Nil(t, h, "no run object may exist after a configuration failure")
			assert.True(t, optimization.IsConfigError(err))
		})
	}
}

func TestDeadlineTerminatesRun(t *testing.T) {
	cfg := optimization.RunConfig{
		Solver:      "tabu",
		Perturbers:  map[string]float64{"swap": 1},
		Objective:   optimization.ObjectiveConfig{Name: "terrain"},
		Seed:        19,
		MaxDuration: optimization.Duration(50 * time.Millisecond),
		Tabu:        optimization.TabuConfig{Tenure: 8, MaxStall: 1 << 30},
	}

	d := New(catalog.Default())
	h, err := d.Start(context.Background(), cfg, intGrid4x4(t, 5))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, optimization.OutcomeCompleted, res.Outcome)
	assert.Equal(t, optimization.ReasonDeadline, res.Reason)
}

func TestContextCancellationCancelsRun(t *testing.T) {
	cfg := optimization.RunConfig{
		Solver:        "tabu",
		Perturbers:    map[string]float64{"swap": 1},
		Objective:     optimization.ObjectiveConfig{Name: "terrain"},
		Seed:          23,
		MaxIterations: 1 << 30,
		Tabu:          optimization.TabuConfig{Tenure: 8, MaxStall: 1 << 30},
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := New(catalog.Default())
	h, err := d.Start(ctx, cfg, intGrid4x4(t, 5))
	require.NoError(t, err)

	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	res, err := h.Result(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, optimization.OutcomeCancelled, res.Outcome)
}
