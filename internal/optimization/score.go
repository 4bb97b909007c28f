package optimization

import "math"

// Direction fixes the total order on scores for a run: whether a lower or a
// higher objective value wins.
type Direction int

const (
	// Minimize treats lower scores as better.
	Minimize Direction = iota
	// Maximize treats higher scores as better.
	Maximize
)

// ParseDirection converts a configuration string to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "minimize", "min":
		return Minimize, nil
	case "maximize", "max":
		return Maximize, nil
	default:
		return Minimize, NewConfigErrorf("unknown optimization direction %q", s)
	}
}

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Normalize maps a raw objective value onto the internal lower-is-better
// scale used by the driver and the solver strategies.
func (d Direction) Normalize(v float64) float64 {
	if d == Maximize {
		return -v
	}
	return v
}

// Better reports whether candidate strictly improves on current in this
// direction.
func (d Direction) Better(candidate, current float64) bool {
	if d == Maximize {
		return candidate > current
	}
	return candidate < current
}

// Score is a totally ordered objective value plus an optional breakdown of
// named cost components for diagnostics. A score is a pure function of grid
// state given fixed input data and configuration.
type Score struct {
	Value      float64            `json:"value"`
	Components map[string]float64 `json:"components,omitempty"`
}

// Finite reports whether the score and all its components are finite.
// Non-finite scores are a reported failure, never silently accepted.
func (s Score) Finite() bool {
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return false
	}
	for _, v := range s.Components {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Add returns the component-wise sum of s and delta, as produced by applying
// an incremental evaluation on top of a known score.
func (s Score) Add(delta Score) Score {
	out := Score{
		Value:      s.Value + delta.Value,
		Components: make(map[string]float64, len(s.Components)),
	}
	for k, v := range s.Components {
		out.Components[k] = v
	}
	for k, v := range delta.Components {
		out.Components[k] += v
	}
	return out
}
