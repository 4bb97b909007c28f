package optimization

import (
	"math/rand"
	"time"
)

// Perturber generates candidate moves for a grid. Propose must be pure with
// respect to rng: it draws all randomness from the supplied source and never
// creates one internally, so a fixed seed yields a fully deterministic
// sequence of proposals. Propose must not mutate the grid.
type Perturber interface {
	// Name returns the registered identifier of the perturber.
	Name() string

	// Propose generates one candidate move for the grid.
	Propose(g *Grid, rng *rand.Rand) (Move, error)
}

// Evaluator scores grids against a cost function.
type Evaluator interface {
	// Direction returns the configured optimization direction.
	Direction() Direction

	// Score fully evaluates the grid.
	Score(g *Grid) (Score, error)

	// Delta incrementally evaluates the move against the grid, restricted to
	// the cells the move touches. The returned score is the component-wise
	// difference between the post-move and pre-move evaluations; it must
	// match a full recomputation on the post-move grid within floating-point
	// tolerance.
	Delta(g *Grid, m Move) (Score, error)
}

// Decision carries everything a solver strategy may consider when ruling on
// a candidate move. All values are on the normalized lower-is-better scale.
type Decision struct {
	// Current is the score of the grid the move would apply to.
	Current float64
	// Candidate is the score the grid would have after the move.
	Candidate float64
	// Best is the best score observed so far in the run.
	Best float64
	// Move is the candidate move under consideration.
	Move Move
	// Iteration is the zero-based iteration index.
	Iteration int
}

// Strategy is the acceptance and termination policy of a run. Each strategy
// must be deterministic given the same seed, configuration and input grid.
type Strategy interface {
	// Name returns the registered identifier of the strategy.
	Name() string

	// Accept decides whether the candidate move is taken.
	Accept(d Decision, rng *rand.Rand) bool

	// MoveAccepted notifies the strategy that the move from the last
	// accepting decision was applied, so it can update recency state.
	MoveAccepted(m Move)

	// Terminate is consulted once per iteration. Returning done ends the run
	// normally with the given reason.
	Terminate(iteration int, elapsed time.Duration, sinceImprovement int) (reason TerminationReason, done bool)
}
