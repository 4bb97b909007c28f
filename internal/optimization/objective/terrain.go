// Package objective provides the built-in cost functions over grid states.
package objective

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// Component names reported in score breakdowns.
const (
	// ComponentRoughness sums |a-b| over horizontally and vertically
	// adjacent cell pairs.
	ComponentRoughness = "roughness"
	// ComponentClimb sums only the positive value increases when scanning
	// right and down, the analogue of climbing over a terrain profile.
	ComponentClimb = "climb"
	// ComponentRelief sums |v - reference| per cell.
	ComponentRelief = "relief"
)

// Terrain is a locally decomposable evaluator: a weighted sum of per-cell
// and pairwise-neighbor terms. Because every term depends on at most two
// adjacent cells, a move's score delta is computable from the cells it
// touches alone.
type Terrain struct {
	direction optimization.Direction
	weights   map[string]float64
	reference float64
}

// New builds a terrain evaluator from the run configuration's objective
// section. Unknown component names and non-finite weights fail fast.
func New(cfg optimization.RunConfig) (*Terrain, error) {
	dir, err := optimization.ParseDirection(cfg.Objective.Direction)
	if err != nil {
		return nil, err
	}

	weights := map[string]float64{
		ComponentRoughness: 1,
		ComponentClimb:     1,
		ComponentRelief:    0,
	}
	for name, w := range cfg.Objective.Weights {
		if _, known := weights[name]; !known {
			return nil, optimization.NewConfigErrorf("unknown objective component %q", name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, optimization.NewConfigErrorf("objective weight %q = %v is not finite", name, w)
		}
		if w < 0 {
			return nil, optimization.NewConfigErrorf("objective weight %q = %v is negative", name, w)
		}
		weights[name] = w
	}
	if math.IsNaN(cfg.Objective.Reference) || math.IsInf(cfg.Objective.Reference, 0) {
		return nil, optimization.NewConfigError("objective reference must be finite")
	}

	return &Terrain{direction: dir, weights: weights, reference: cfg.Objective.Reference}, nil
}

// Direction implements optimization.Evaluator.
func (t *Terrain) Direction() optimization.Direction { return t.direction }

// Score implements optimization.Evaluator with a full pass over the grid.
func (t *Terrain) Score(g *optimization.Grid) (optimization.Score, error) {
	rows, cols := g.Rows(), g.Cols()
	rough := make([]float64, rows)
	climb := make([]float64, rows)
	relief := make([]float64, rows)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.At(r, c)
			relief[r] += math.Abs(v - t.reference)
			if c+1 < cols {
				rough[r] += math.Abs(g.At(r, c+1) - v)
				climb[r] += math.Max(0, g.At(r, c+1)-v)
			}
			if r+1 < rows {
				rough[r] += math.Abs(g.At(r+1, c) - v)
				climb[r] += math.Max(0, g.At(r+1, c)-v)
			}
		}
	}

	score := t.compose(floats.Sum(rough), floats.Sum(climb), floats.Sum(relief))
	if !score.Finite() {
		return optimization.Score{}, optimization.NewEvaluationErrorf("full evaluation produced a non-finite score")
	}
	return score, nil
}

// Delta implements optimization.Evaluator. It evaluates only the terms that
// involve cells the move touches, before and after the hypothetical
// application, and returns the component-wise difference. The grid is not
// mutated.
func (t *Terrain) Delta(g *optimization.Grid, m optimization.Move) (optimization.Score, error) {
	if err := m.Validate(g); err != nil {
		return optimization.Score{}, err
	}

	// Last write wins for cells listed more than once.
	after := make(map[[2]int]float64, len(m.Changes))
	for _, ch := range m.Changes {
		after[[2]int{ch.Row, ch.Col}] = ch.New
	}
	post := func(r, c int) float64 {
		if v, ok := after[[2]int{r, c}]; ok {
			return v
		}
		return g.At(r, c)
	}

	// Collect each affected neighbor pair once, in canonical
	// left-cell-first form.
	pairs := make(map[[4]int]struct{}, 4*len(after))
	for cell := range after {
		r, c := cell[0], cell[1]
		if c+1 < g.Cols() {
			pairs[[4]int{r, c, r, c + 1}] = struct{}{}
		}
		if c-1 >= 0 {
			pairs[[4]int{r, c - 1, r, c}] = struct{}{}
		}
		if r+1 < g.Rows() {
			pairs[[4]int{r, c, r + 1, c}] = struct{}{}
		}
		if r-1 >= 0 {
			pairs[[4]int{r - 1, c, r, c}] = struct{}{}
		}
	}

	var dRough, dClimb, dRelief float64
	for p := range pairs {
		a0, b0 := g.At(p[0], p[1]), g.At(p[2], p[3])
		a1, b1 := post(p[0], p[1]), post(p[2], p[3])
		dRough += math.Abs(b1-a1) - math.Abs(b0-a0)
		dClimb += math.Max(0, b1-a1) - math.Max(0, b0-a0)
	}
	for cell, v1 := range after {
		v0 := g.At(cell[0], cell[1])
		dRelief += math.Abs(v1-t.reference) - math.Abs(v0-t.reference)
	}

	delta := t.compose(dRough, dClimb, dRelief)
	if !delta.Finite() {
		return optimization.Score{}, optimization.NewEvaluationErrorf("incremental evaluation produced a non-finite score")
	}
	return delta, nil
}

func (t *Terrain) compose(rough, climb, relief float64) optimization.Score {
	return optimization.Score{
		Value: t.weights[ComponentRoughness]*rough +
			t.weights[ComponentClimb]*climb +
			t.weights[ComponentRelief]*relief,
		Components: map[string]float64{
			ComponentRoughness: rough,
			ComponentClimb:     climb,
			ComponentRelief:    relief,
		},
	}
}
