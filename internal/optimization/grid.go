package optimization

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Domain describes the set of values a grid cell may hold. When Values is
// non-empty the domain is the discrete set of those values; otherwise it is
// the continuous closed interval [Min, Max].
type Domain struct {
	Min    float64   `json:"min" yaml:"min"`
	Max    float64   `json:"max" yaml:"max"`
	Values []float64 `json:"values,omitempty" yaml:"values,omitempty"`
}

// Discrete reports whether the domain is an explicit value set.
func (d Domain) Discrete() bool {
	return len(d.Values) > 0
}

// Sample draws a value from the domain using the supplied random source.
func (d Domain) Sample(rng *rand.Rand) float64 {
	if d.Discrete() {
		return d.Values[rng.Intn(len(d.Values))]
	}
	return d.Min + rng.Float64()*(d.Max-d.Min)
}

// Validate checks that the domain is well formed.
func (d Domain) Validate() error {
	if d.Discrete() {
		for _, v := range d.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return NewConfigErrorf("domain value %v is not finite", v)
			}
		}
		return nil
	}
	if math.IsNaN(d.Min) || math.IsInf(d.Min, 0) || math.IsNaN(d.Max) || math.IsInf(d.Max, 0) {
		return NewConfigError("domain bounds must be finite")
	}
	if d.Min > d.Max {
		return NewConfigErrorf("domain min %v exceeds max %v", d.Min, d.Max)
	}
	return nil
}

// Grid is the candidate solution under optimization: a fixed-shape raster of
// cell values. The shape is immutable for the lifetime of a run; only cell
// values change. The driver is the sole owner of the live grid during a run
// and hands out clones to everyone else.
type Grid struct {
	cells  *mat.Dense
	rows   int
	cols   int
	domain Domain
}

// NewGrid creates a grid of the given shape. When values is nil all cells
// start at the domain minimum (or the first discrete value); otherwise values
// must hold rows*cols entries in row-major order.
func NewGrid(rows, cols int, domain Domain, values []float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, NewConfigErrorf("grid shape %dx%d is invalid", rows, cols)
	}
	if err := domain.Validate(); err != nil {
		return nil, err
	}
	if values != nil && len(values) != rows*cols {
		return nil, NewConfigErrorf("grid of shape %dx%d needs %d values, got %d", rows, cols, rows*cols, len(values))
	}
	if values == nil {
		values = make([]float64, rows*cols)
		fill := domain.Min
		if domain.Discrete() {
			fill = domain.Values[0]
		}
		for i := range values {
			values[i] = fill
		}
	} else {
		values = append([]float64(nil), values...)
	}
	return &Grid{
		cells:  mat.NewDense(rows, cols, values),
		rows:   rows,
		cols:   cols,
		domain: domain,
	}, nil
}

// Rows returns the number of grid rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of grid columns.
func (g *Grid) Cols() int { return g.cols }

// Domain returns the value domain of the grid's cells.
func (g *Grid) Domain() Domain { return g.domain }

// At returns the value of the cell at (row, col).
func (g *Grid) At(row, col int) float64 { return g.cells.At(row, col) }

// InBounds reports whether (row, col) addresses a cell of the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

func (g *Grid) set(row, col int, v float64) { g.cells.Set(row, col, v) }

// Clone returns an independent deep copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{
		cells:  mat.DenseCopyOf(g.cells),
		rows:   g.rows,
		cols:   g.cols,
		domain: g.domain,
	}
}

// Matrix exposes the cell values as a read-only gonum matrix.
func (g *Grid) Matrix() mat.Matrix { return g.cells }

// Values returns a copy of the cell values in row-major order.
func (g *Grid) Values() []float64 {
	out := make([]float64, g.rows*g.cols)
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			out[r*g.cols+c] = g.cells.At(r, c)
		}
	}
	return out
}

// Equal reports whether both grids have the same shape and bit-identical
// cell values.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.rows != other.rows || g.cols != other.cols {
		return false
	}
	return mat.Equal(g.cells, other.cells)
}
