// Package catalog assembles the default strategy registry from the built-in
// perturbers, solvers and evaluators. It is the one place that knows every
// concrete implementation; everything else resolves strategies by name
// through the registry.
package catalog

import (
	"github.com/scrambleopt/scrambleopt/internal/optimization"
	"github.com/scrambleopt/scrambleopt/internal/optimization/objective"
	"github.com/scrambleopt/scrambleopt/internal/optimization/perturbers"
	"github.com/scrambleopt/scrambleopt/internal/optimization/solvers"
)

// Default region spans for the structural perturbers.
const (
	defaultShiftSpan     = 3
	defaultTransformSpan = 4
)

// Default builds the registry of built-in strategies.
func Default() *optimization.Registry {
	reg := optimization.NewRegistry()

	// Registration of the fixed built-in set cannot collide.
	must(reg.RegisterPerturber("swap", func(optimization.RunConfig) (optimization.Perturber, error) {
		return perturbers.NewCellSwap(), nil
	}))
	must(reg.RegisterPerturber("shift", func(optimization.RunConfig) (optimization.Perturber, error) {
		return perturbers.NewRegionShift(defaultShiftSpan), nil
	}))
	must(reg.RegisterPerturber("mutate", func(optimization.RunConfig) (optimization.Perturber, error) {
		return perturbers.NewValueMutate(), nil
	}))
	must(reg.RegisterPerturber("transform", func(optimization.RunConfig) (optimization.Perturber, error) {
		return perturbers.NewRegionTransform(defaultTransformSpan), nil
	}))

	must(reg.RegisterSolver("hillclimb", func(cfg optimization.RunConfig) (optimization.Strategy, error) {
		return solvers.NewHillClimber(cfg)
	}))
	must(reg.RegisterSolver("anneal", func(cfg optimization.RunConfig) (optimization.Strategy, error) {
		return solvers.NewAnnealer(cfg)
	}))
	must(reg.RegisterSolver("tabu", func(cfg optimization.RunConfig) (optimization.Strategy, error) {
		return solvers.NewTabu(cfg)
	}))

	must(reg.RegisterEvaluator("terrain", func(cfg optimization.RunConfig) (optimization.Evaluator, error) {
		return objective.New(cfg)
	}))

	return reg
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
