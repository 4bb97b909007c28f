package perturbers

import (
	"math/rand"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// RegionShift moves a rectangular sub-region by an offset along one axis,
// exchanging it with the equally shaped region at the destination. Source
// and destination never overlap, so the move decomposes into independent
// cell pairs and inverts cleanly.
type RegionShift struct {
	maxSpan int
}

// NewRegionShift returns a region-shift perturber. maxSpan bounds the region
// edge length; values below one fall back to the default of 3.
func NewRegionShift(maxSpan int) *RegionShift {
	if maxSpan < 1 {
		maxSpan = 3
	}
	return &RegionShift{maxSpan: maxSpan}
}

// Name implements optimization.Perturber.
func (p *RegionShift) Name() string { return "shift" }

// Propose implements optimization.Perturber.
func (p *RegionShift) Propose(g *optimization.Grid, rng *rand.Rand) (optimization.Move, error) {
	vertical := rng.Intn(2) == 0
	if !p.feasible(g, vertical) {
		vertical = !vertical
		if !p.feasible(g, vertical) {
			return optimization.Move{}, optimization.NewConfigErrorf(
				"grid %dx%d is too small for a region shift", g.Rows(), g.Cols())
		}
	}

	rows, cols := g.Rows(), g.Cols()
	if vertical {
		h := 1 + rng.Intn(min(p.maxSpan, rows/2))
		w := 1 + rng.Intn(min(p.maxSpan, cols))
		offset := h + rng.Intn(rows-2*h+1)
		r0 := rng.Intn(rows - offset - h + 1)
		c0 := rng.Intn(cols - w + 1)
		return p.swapRegions(g, r0, c0, r0+offset, c0, h, w), nil
	}

	h := 1 + rng.Intn(min(p.maxSpan, rows))
	w := 1 + rng.Intn(min(p.maxSpan, cols/2))
	offset := w + rng.Intn(cols-2*w+1)
	r0 := rng.Intn(rows - h + 1)
	c0 := rng.Intn(cols - offset - w + 1)
	return p.swapRegions(g, r0, c0, r0, c0+offset, h, w), nil
}

func (p *RegionShift) feasible(g *optimization.Grid, vertical bool) bool {
	if vertical {
		return g.Rows() >= 2
	}
	return g.Cols() >= 2
}

func (p *RegionShift) swapRegions(g *optimization.Grid, r0, c0, r1, c1, h, w int) optimization.Move {
	changes := make([]optimization.CellChange, 0, 2*h*w)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			a := g.At(r0+i, c0+j)
			b := g.At(r1+i, c1+j)
			changes = append(changes,
				optimization.CellChange{Row: r0 + i, Col: c0 + j, Old: a, New: b},
				optimization.CellChange{Row: r1 + i, Col: c1 + j, Old: b, New: a},
			)
		}
	}
	return optimization.Move{Kind: "shift", Changes: changes}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
