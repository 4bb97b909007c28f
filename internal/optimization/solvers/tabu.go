package solvers

import (
	"math/rand"
	"time"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// Tabu implements tabu search over move signatures. A bounded recency ring
// holds the signatures of recently applied moves and their inverses; a
// candidate matching a tabu entry is rejected unless it improves on the
// best-so-far score (the aspiration criterion). Non-tabu candidates are
// accepted unconditionally so the search keeps moving across plateaus and
// out of local minima.
type Tabu struct {
	ring          []string
	next          int
	members       map[string]int
	maxIterations int
	maxStall      int
}

// NewTabu builds a tabu-search strategy from the run configuration.
func NewTabu(cfg optimization.RunConfig) (*Tabu, error) {
	tenure := cfg.Tabu.Tenure
	if tenure == 0 {
		tenure = 64
	}
	if tenure < 0 {
		return nil, optimization.NewConfigErrorf("tabu tenure %d must be positive", tenure)
	}
	stall := cfg.Tabu.MaxStall
	if stall == 0 {
		stall = 500
	}
	if stall < 0 {
		return nil, optimization.NewConfigErrorf("tabu stall budget %d must be positive", stall)
	}
	return &Tabu{
		ring:          make([]string, tenure),
		members:       make(map[string]int, tenure),
		maxIterations: cfg.MaxIterations,
		maxStall:      stall,
	}, nil
}

// Name implements optimization.Strategy.
func (s *Tabu) Name() string { return "tabu" }

// Accept implements optimization.Strategy.
func (s *Tabu) Accept(d optimization.Decision, _ *rand.Rand) bool {
	if d.Candidate < d.Best {
		// Aspiration: a new global best overrides the tabu list.
		return true
	}
	return s.members[d.Move.Signature()] == 0
}

// MoveAccepted implements optimization.Strategy. The applied move's
// signature is recorded along with its inverse, so the search cannot
// immediately reapply or undo it while the entries stay in tenure.
func (s *Tabu) MoveAccepted(m optimization.Move) {
	s.remember(m.Signature())
	s.remember(m.Invert().Signature())
}

func (s *Tabu) remember(sig string) {
	if evicted := s.ring[s.next]; evicted != "" {
		if s.members[evicted]--; s.members[evicted] == 0 {
			delete(s.members, evicted)
		}
	}
	s.ring[s.next] = sig
	s.members[sig]++
	s.next = (s.next + 1) % len(s.ring)
}

// Terminate implements optimization.Strategy.
func (s *Tabu) Terminate(iteration int, _ time.Duration, sinceImprovement int) (optimization.TerminationReason, bool) {
	if sinceImprovement >= s.maxStall {
		return optimization.ReasonStalled, true
	}
	if s.maxIterations > 0 && iteration >= s.maxIterations {
		return optimization.ReasonIterationBudget, true
	}
	return "", false
}
