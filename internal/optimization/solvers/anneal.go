package solvers

import (
	"math"
	"math/rand"
	"time"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// Cooling schedules for the annealer.
const (
	ScheduleGeometric = "geometric"
	ScheduleLinear    = "linear"
)

// Annealer implements simulated annealing: improving candidates are always
// accepted, worsening ones with probability exp(-delta/T). The temperature
// is a pure function of the iteration index, so the strategy carries no
// mutable cooling state and stays trivially deterministic.
type Annealer struct {
	initial       float64
	floor         float64
	rate          float64
	geometric     bool
	maxIterations int
}

// NewAnnealer builds a simulated-annealing strategy from the run
// configuration, failing fast on non-finite or out-of-range parameters.
func NewAnnealer(cfg optimization.RunConfig) (*Annealer, error) {
	p := cfg.Anneal
	if p.InitialTemp == 0 {
		p.InitialTemp = 10
	}
	if p.FloorTemp == 0 {
		p.FloorTemp = 1e-3
	}
	if p.CoolingRate == 0 {
		p.CoolingRate = 0.995
	}
	for name, v := range map[string]float64{
		"initial temperature": p.InitialTemp,
		"floor temperature":   p.FloorTemp,
		"cooling rate":        p.CoolingRate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, optimization.NewConfigErrorf("annealing %s is not finite", name)
		}
		if v <= 0 {
			return nil, optimization.NewConfigErrorf("annealing %s %v must be positive", name, v)
		}
	}
	if p.FloorTemp >= p.InitialTemp {
		return nil, optimization.NewConfigErrorf("floor temperature %v must be below initial %v", p.FloorTemp, p.InitialTemp)
	}

	geometric := true
	switch p.Schedule {
	case "", ScheduleGeometric:
		if p.CoolingRate >= 1 {
			return nil, optimization.NewConfigErrorf("geometric cooling rate %v must be in (0,1)", p.CoolingRate)
		}
	case ScheduleLinear:
		geometric = false
	default:
		return nil, optimization.NewConfigErrorf("unknown cooling schedule %q", p.Schedule)
	}

	return &Annealer{
		initial:       p.InitialTemp,
		floor:         p.FloorTemp,
		rate:          p.CoolingRate,
		geometric:     geometric,
		maxIterations: cfg.MaxIterations,
	}, nil
}

// Name implements optimization.Strategy.
func (a *Annealer) Name() string { return "anneal" }

// Temperature returns the temperature in effect at the given iteration.
func (a *Annealer) Temperature(iteration int) float64 {
	if a.geometric {
		return a.initial * math.Pow(a.rate, float64(iteration))
	}
	return a.initial - a.rate*float64(iteration)
}

// Accept implements optimization.Strategy.
func (a *Annealer) Accept(d optimization.Decision, rng *rand.Rand) bool {
	if d.Candidate < d.Current {
		return true
	}
	temp := math.Max(a.Temperature(d.Iteration), a.floor)
	degradation := d.Candidate - d.Current
	return rng.Float64() < math.Exp(-degradation/temp)
}

// MoveAccepted implements optimization.Strategy.
func (a *Annealer) MoveAccepted(optimization.Move) {}

// Terminate implements optimization.Strategy.
func (a *Annealer) Terminate(iteration int, _ time.Duration, _ int) (optimization.TerminationReason, bool) {
	if a.Temperature(iteration) < a.floor {
		return optimization.ReasonTemperatureFloor, true
	}
	if a.maxIterations > 0 && iteration >= a.maxIterations {
		return optimization.ReasonIterationBudget, true
	}
	return "", false
}
