package perturbers

import (
	"math/rand"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// ValueMutate resamples a single cell from the grid's value domain.
type ValueMutate struct{}

// NewValueMutate returns a value-mutation perturber.
func NewValueMutate() *ValueMutate { return &ValueMutate{} }

// Name implements optimization.Perturber.
func (p *ValueMutate) Name() string { return "mutate" }

// Propose implements optimization.Perturber.
func (p *ValueMutate) Propose(g *optimization.Grid, rng *rand.Rand) (optimization.Move, error) {
	idx := rng.Intn(g.Rows() * g.Cols())
	r, c := idx/g.Cols(), idx%g.Cols()

	return optimization.Move{
		Kind: "mutate",
		Changes: []optimization.CellChange{
			{Row: r, Col: c, Old: g.At(r, c), New: g.Domain().Sample(rng)},
		},
	}, nil
}
