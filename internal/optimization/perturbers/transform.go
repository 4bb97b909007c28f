package perturbers

import (
	"math/rand"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

type transformOp int

const (
	rotate90 transformOp = iota
	rotate180
	rotate270
	reflectH
	reflectV
	transformOpCount
)

// RegionTransform applies a geometric transform (quarter rotations or axis
// reflections) to a square sub-region.
type RegionTransform struct {
	maxSpan int
}

// NewRegionTransform returns a region-transform perturber. maxSpan bounds
// the region edge length; values below two fall back to the default of 4.
func NewRegionTransform(maxSpan int) *RegionTransform {
	if maxSpan < 2 {
		maxSpan = 4
	}
	return &RegionTransform{maxSpan: maxSpan}
}

// Name implements optimization.Perturber.
func (p *RegionTransform) Name() string { return "transform" }

// Propose implements optimization.Perturber.
func (p *RegionTransform) Propose(g *optimization.Grid, rng *rand.Rand) (optimization.Move, error) {
	maxEdge := min(p.maxSpan, min(g.Rows(), g.Cols()))
	if maxEdge < 2 {
		return optimization.Move{}, optimization.NewConfigErrorf(
			"grid %dx%d is too small for a region transform", g.Rows(), g.Cols())
	}

	k := 2 + rng.Intn(maxEdge-1)
	r0 := rng.Intn(g.Rows() - k + 1)
	c0 := rng.Intn(g.Cols() - k + 1)
	op := transformOp(rng.Intn(int(transformOpCount)))

	// Every cell of the region is listed, changed or not, so the move
	// describes the whole transform and inverts positionally.
	changes := make([]optimization.CellChange, 0, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			si, sj := sourceCell(op, i, j, k)
			changes = append(changes, optimization.CellChange{
				Row: r0 + i,
				Col: c0 + j,
				Old: g.At(r0+i, c0+j),
				New: g.At(r0+si, c0+sj),
			})
		}
	}
	return optimization.Move{Kind: "transform", Changes: changes}, nil
}

// sourceCell maps a destination cell (i, j) of a k-sized region to the cell
// whose value it receives under op.
func sourceCell(op transformOp, i, j, k int) (int, int) {
	switch op {
	case rotate90:
		return k - 1 - j, i
	case rotate180:
		return k - 1 - i, k - 1 - j
	case rotate270:
		return j, k - 1 - i
	case reflectH:
		return i, k - 1 - j
	default: // reflectV
		return k - 1 - i, j
	}
}
