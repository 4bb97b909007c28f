package optimization

import (
	"fmt"
	"math"
	"time"
)

// Duration is a time.Duration that marshals as a human-readable string in
// YAML and JSON run configurations ("30s", "5m").
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// ObjectiveConfig selects and tunes the objective evaluator.
type ObjectiveConfig struct {
	// Name is the registered evaluator name.
	Name string `json:"name" yaml:"name"`
	// Direction is "minimize" (default) or "maximize".
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	// Weights scale the named cost components.
	Weights map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	// Reference is the baseline value for per-cell terms.
	Reference float64 `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// HillClimbConfig tunes the hill-climbing strategy.
type HillClimbConfig struct {
	// MaxStall is the number of non-improving iterations tolerated before
	// the run completes.
	MaxStall int `json:"maxStall" yaml:"maxStall"`
}

// AnnealConfig tunes the simulated-annealing strategy.
type AnnealConfig struct {
	InitialTemp float64 `json:"initialTemp" yaml:"initialTemp"`
	FloorTemp   float64 `json:"floorTemp" yaml:"floorTemp"`
	CoolingRate float64 `json:"coolingRate" yaml:"coolingRate"`
	// Schedule is "geometric" (default) or "linear".
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// TabuConfig tunes the tabu-search strategy.
type TabuConfig struct {
	// Tenure is the capacity of the recency list of move signatures.
	Tenure int `json:"tenure" yaml:"tenure"`
	// MaxStall is the stagnation count that ends the run.
	MaxStall int `json:"maxStall" yaml:"maxStall"`
}

// RunConfig is the immutable record selecting strategies and their tunable
// parameters for one run. It is created before the run starts and never
// mutated afterwards.
type RunConfig struct {
	// Solver names the registered solver strategy.
	Solver string `json:"solver" yaml:"solver"`
	// Perturbers maps registered perturber names to selection weights.
	// Weights must be finite, non-negative and sum to a positive value.
	Perturbers map[string]float64 `json:"perturbers" yaml:"perturbers"`
	// Objective selects and tunes the evaluator.
	Objective ObjectiveConfig `json:"objective" yaml:"objective"`
	// Seed seeds the run's random source.
	Seed int64 `json:"seed" yaml:"seed"`
	// MaxIterations is the iteration budget.
	MaxIterations int `json:"maxIterations" yaml:"maxIterations"`
	// MaxDuration optionally bounds the run's wall-clock time.
	MaxDuration Duration `json:"maxDuration,omitempty" yaml:"maxDuration,omitempty"`
	// ProgressEvery is the iteration stride between progress ticks.
	ProgressEvery int `json:"progressEvery,omitempty" yaml:"progressEvery,omitempty"`
	// Candidates is the number of independently proposed candidates scored
	// per iteration. Values above one enable parallel evaluation; run
	// determinism then holds only for a fixed candidate count.
	Candidates int `json:"candidates,omitempty" yaml:"candidates,omitempty"`

	HillClimb HillClimbConfig `json:"hillClimb,omitempty" yaml:"hillClimb,omitempty"`
	Anneal    AnnealConfig    `json:"anneal,omitempty" yaml:"anneal,omitempty"`
	Tabu      TabuConfig      `json:"tabu,omitempty" yaml:"tabu,omitempty"`
}

// Normalized returns a copy with defaults filled in.
func (c RunConfig) Normalized() RunConfig {
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = 10
	}
	if c.Candidates <= 0 {
		c.Candidates = 1
	}
	if c.Objective.Name == "" {
		c.Objective.Name = "terrain"
	}
	return c
}

// Validate fails fast on structural configuration problems. Strategy-specific
// parameters are validated by the strategy factories.
func (c RunConfig) Validate() error {
	if c.Solver == "" {
		return NewConfigError("no solver selected")
	}
	if len(c.Perturbers) == 0 {
		return NewConfigError("no perturbers selected")
	}
	total := 0.0
	for name, w := range c.Perturbers {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return NewConfigErrorf("perturber %q weight %v is not finite", name, w)
		}
		if w < 0 {
			return NewConfigErrorf("perturber %q weight %v is negative", name, w)
		}
		total += w
	}
	if total <= 0 {
		return NewConfigErrorf("perturber weights sum to %v, need a positive total", total)
	}
	if c.MaxIterations <= 0 && c.MaxDuration <= 0 {
		return NewConfigError("run needs an iteration budget or a duration bound")
	}
	if _, err := ParseDirection(c.Objective.Direction); err != nil {
		return err
	}
	for name, w := range c.Objective.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return NewConfigErrorf("objective weight %q = %v is not finite", name, w)
		}
	}
	return nil
}
