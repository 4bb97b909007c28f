// Package solvers provides the built-in solver strategies: hill climbing,
// simulated annealing and tabu search. All strategies operate on the
// driver's normalized lower-is-better score scale and are deterministic
// given the same seed, configuration and input grid.
package solvers

import (
	"math/rand"
	"time"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// HillClimber accepts only strictly improving candidates. Ties are rejected
// to avoid plateau drift. The run completes after a configured number of
// non-improving iterations or when the iteration budget runs out.
type HillClimber struct {
	maxStall      int
	maxIterations int
}

// NewHillClimber builds a hill-climbing strategy.
func NewHillClimber(cfg optimization.RunConfig) (*HillClimber, error) {
	stall := cfg.HillClimb.MaxStall
	if stall <= 0 {
		stall = 200
	}
	if cfg.MaxIterations < 0 {
		return nil, optimization.NewConfigErrorf("hill climbing iteration budget %d is negative", cfg.MaxIterations)
	}
	return &HillClimber{maxStall: stall, maxIterations: cfg.MaxIterations}, nil
}

// Name implements optimization.Strategy.
func (h *HillClimber) Name() string { return "hillclimb" }

// Accept implements optimization.Strategy.
func (h *HillClimber) Accept(d optimization.Decision, _ *rand.Rand) bool {
	return d.Candidate < d.Current
}

// MoveAccepted implements optimization.Strategy.
func (h *HillClimber) MoveAccepted(optimization.Move) {}

// Terminate implements optimization.Strategy.
func (h *HillClimber) Terminate(iteration int, _ time.Duration, sinceImprovement int) (optimization.TerminationReason, bool) {
	if sinceImprovement >= h.maxStall {
		return optimization.ReasonStalled, true
	}
	if h.maxIterations > 0 && iteration >= h.maxIterations {
		return optimization.ReasonIterationBudget, true
	}
	return "", false
}
