package optimization

import "sort"

// PerturberFactory builds a perturber from a run configuration.
type PerturberFactory func(cfg RunConfig) (Perturber, error)

// SolverFactory builds a solver strategy from a run configuration.
type SolverFactory func(cfg RunConfig) (Strategy, error)

// EvaluatorFactory builds an objective evaluator from a run configuration.
type EvaluatorFactory func(cfg RunConfig) (Evaluator, error)

// Registry maps configuration-selected names to concrete perturber, solver
// and evaluator implementations. It is constructed once at startup and then
// passed by reference into the driver; it is not safe for concurrent
// registration after that point.
type Registry struct {
	perturbers map[string]PerturberFactory
	solvers    map[string]SolverFactory
	evaluators map[string]EvaluatorFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		perturbers: make(map[string]PerturberFactory),
		solvers:    make(map[string]SolverFactory),
		evaluators: make(map[string]EvaluatorFactory),
	}
}

// RegisterPerturber adds a perturber factory under name.
func (r *Registry) RegisterPerturber(name string, f PerturberFactory) error {
	if _, dup := r.perturbers[name]; dup {
		return NewConfigErrorf("perturber %q registered twice", name)
	}
	r.perturbers[name] = f
	return nil
}

// RegisterSolver adds a solver factory under name.
func (r *Registry) RegisterSolver(name string, f SolverFactory) error {
	if _, dup := r.solvers[name]; dup {
		return NewConfigErrorf("solver %q registered twice", name)
	}
	r.solvers[name] = f
	return nil
}

// RegisterEvaluator adds an evaluator factory under name.
func (r *Registry) RegisterEvaluator(name string, f EvaluatorFactory) error {
	if _, dup := r.evaluators[name]; dup {
		return NewConfigErrorf("evaluator %q registered twice", name)
	}
	r.evaluators[name] = f
	return nil
}

// Perturber resolves a registered perturber factory.
func (r *Registry) Perturber(name string) (PerturberFactory, error) {
	f, ok := r.perturbers[name]
	if !ok {
		return nil, NewConfigErrorf("unknown perturber %q", name)
	}
	return f, nil
}

// Solver resolves a registered solver factory.
func (r *Registry) Solver(name string) (SolverFactory, error) {
	f, ok := r.solvers[name]
	if !ok {
		return nil, NewConfigErrorf("unknown solver %q", name)
	}
	return f, nil
}

// Evaluator resolves a registered evaluator factory.
func (r *Registry) Evaluator(name string) (EvaluatorFactory, error) {
	f, ok := r.evaluators[name]
	if !ok {
		return nil, NewConfigErrorf("unknown evaluator %q", name)
	}
	return f, nil
}

// PerturberNames lists registered perturbers in sorted order.
func (r *Registry) PerturberNames() []string { return sortedKeys(r.perturbers) }

// SolverNames lists registered solvers in sorted order.
func (r *Registry) SolverNames() []string { return sortedKeys(r.solvers) }

// EvaluatorNames lists registered evaluators in sorted order.
func (r *Registry) EvaluatorNames() []string { return sortedKeys(r.evaluators) }

func sortedKeys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
