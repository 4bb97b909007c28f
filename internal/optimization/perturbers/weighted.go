package perturbers

import (
	"math"
	"math/rand"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// Entry pairs a perturber with its selection weight.
type Entry struct {
	Perturber optimization.Perturber
	Weight    float64
}

// Selector draws one of several active perturbers per proposal using a
// weighted distribution. With a single entry it degenerates to that
// perturber, which is how a single-perturber run is configured.
type Selector struct {
	entries    []Entry
	cumulative []float64
	total      float64
}

// NewSelector builds a weighted selector. Weights must be finite and
// non-negative and sum to a positive value; anything else fails fast as a
// configuration error. Entry order fixes the draw order, so callers must
// pass a deterministic ordering.
func NewSelector(entries []Entry) (*Selector, error) {
	if len(entries) == 0 {
		return nil, optimization.NewConfigError("weighted selector needs at least one perturber")
	}
	s := &Selector{
		entries:    entries,
		cumulative: make([]float64, len(entries)),
	}
	for i, e := range entries {
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return nil, optimization.NewConfigErrorf("perturber %q weight %v is not finite", e.Perturber.Name(), e.Weight)
		}
		if e.Weight < 0 {
			return nil, optimization.NewConfigErrorf("perturber %q weight %v is negative", e.Perturber.Name(), e.Weight)
		}
		s.total += e.Weight
		s.cumulative[i] = s.total
	}
	if s.total <= 0 {
		return nil, optimization.NewConfigErrorf("perturber weights sum to %v, need a positive total", s.total)
	}
	return s, nil
}

// Name implements optimization.Perturber.
func (s *Selector) Name() string { return "weighted" }

// Propose implements optimization.Perturber by delegating to one entry drawn
// from the weighted distribution.
func (s *Selector) Propose(g *optimization.Grid, rng *rand.Rand) (optimization.Move, error) {
	return s.pick(rng.Float64() * s.total).Propose(g, rng)
}

func (s *Selector) pick(r float64) optimization.Perturber {
	for i, c := range s.cumulative {
		if r < c {
			return s.entries[i].Perturber
		}
	}
	return s.entries[len(s.entries)-1].Perturber
}
