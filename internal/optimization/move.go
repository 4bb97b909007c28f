package optimization

import (
	"strconv"
	"strings"
)

// CellChange describes one cell transitioning from Old to New.
type CellChange struct {
	Row int
	Col int
	Old float64
	New float64
}

// Move is an atomic, invertible change to a grid: an ordered list of cell
// changes carrying enough information to apply and to undo without
// recomputation. Applying a move and then its inverse restores the prior
// grid bit for bit.
type Move struct {
	Kind    string
	Changes []CellChange
}

// Validate checks the move against the grid's bounds and current values.
// A move that fails validation is a programming error in the perturber that
// produced it, not a runtime condition.
func (m Move) Validate(g *Grid) error {
	if len(m.Changes) == 0 {
		return NewConfigErrorf("%s move has no cell changes", m.Kind)
	}
	for _, ch := range m.Changes {
		if !g.InBounds(ch.Row, ch.Col) {
			return NewConfigErrorf("%s move touches cell (%d,%d) outside %dx%d grid",
				m.Kind, ch.Row, ch.Col, g.Rows(), g.Cols())
		}
	}
	return nil
}

// Apply mutates the grid in place. Changes are applied in order, so a cell
// listed more than once ends at the value of its last change.
func (m Move) Apply(g *Grid) error {
	if err := m.Validate(g); err != nil {
		return err
	}
	for _, ch := range m.Changes {
		g.set(ch.Row, ch.Col, ch.New)
	}
	return nil
}

// Invert returns the exact inverse move: changes reversed in order with Old
// and New swapped.
func (m Move) Invert() Move {
	inv := Move{Kind: m.Kind, Changes: make([]CellChange, len(m.Changes))}
	for i, ch := range m.Changes {
		inv.Changes[len(m.Changes)-1-i] = CellChange{
			Row: ch.Row,
			Col: ch.Col,
			Old: ch.New,
			New: ch.Old,
		}
	}
	return inv
}

// Signature returns a stable identity string for the move, used by recency
// bookkeeping such as tabu lists. Two moves writing the same values to the
// same cells share a signature.
func (m Move) Signature() string {
	var b strings.Builder
	b.WriteString(m.Kind)
	for _, ch := range m.Changes {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(ch.Row))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(ch.Col))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(ch.New, 'g', -1, 64))
	}
	return b.String()
}
