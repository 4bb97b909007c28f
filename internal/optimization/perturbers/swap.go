// Package perturbers provides the built-in move generators: cell swap,
// region shift, value mutation and region transforms, plus the weighted
// selector that picks among active perturbers each iteration.
package perturbers

import (
	"math/rand"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// CellSwap exchanges the values of two distinct cells.
type CellSwap struct{}

// NewCellSwap returns a cell-swap perturber.
func NewCellSwap() *CellSwap { return &CellSwap{} }

// Name implements optimization.Perturber.
func (p *CellSwap) Name() string { return "swap" }

// Propose implements optimization.Perturber.
func (p *CellSwap) Propose(g *optimization.Grid, rng *rand.Rand) (optimization.Move, error) {
	n := g.Rows() * g.Cols()
	if n < 2 {
		return optimization.Move{}, optimization.NewConfigError("cell swap needs a grid with at least two cells")
	}

	a := rng.Intn(n)
	b := rng.Intn(n - 1)
	if b >= a {
		b++
	}

	ar, ac := a/g.Cols(), a%g.Cols()
	br, bc := b/g.Cols(), b%g.Cols()
	av, bv := g.At(ar, ac), g.At(br, bc)

	return optimization.Move{
		Kind: "swap",
		Changes: []optimization.CellChange{
			{Row: ar, Col: ac, Old: av, New: bv},
			{Row: br, Col: bc, Old: bv, New: av},
		},
	}, nil
}
