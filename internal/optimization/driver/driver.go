// Package driver owns the optimization run loop: it wires a configured
// perturber selection, evaluator and solver strategy into a single worker
// goroutine per run and hands the caller a control handle.
package driver

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
	"github.com/scrambleopt/scrambleopt/internal/optimization/perturbers"
)

// Observer receives run-loop instrumentation events.
type Observer interface {
	ObserveIteration(accepted bool)
	ObserveRun(outcome optimization.Outcome, elapsed time.Duration, best float64)
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// WithObserver attaches run-loop instrumentation.
func WithObserver(obs Observer) Option {
	return func(d *Driver) { d.obs = obs }
}

// Driver starts and supervises optimization runs against a strategy
// registry built at startup.
type Driver struct {
	reg *optimization.Registry
	log *zap.Logger
	obs Observer
}

// New creates a driver over the given registry.
func New(reg *optimization.Registry, opts ...Option) *Driver {
	d := &Driver{reg: reg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start validates the configuration, resolves the configured strategies and
// launches the run on a dedicated worker goroutine. Configuration problems
// fail fast before any run object exists. Cancelling ctx cancels the run.
func (d *Driver) Start(ctx context.Context, cfg optimization.RunConfig, initial *optimization.Grid) (*Handle, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if initial == nil {
		return nil, optimization.NewConfigError("no initial grid")
	}

	solverFactory, err := d.reg.Solver(cfg.Solver)
	if err != nil {
		return nil, err
	}
	strategy, err := solverFactory(cfg)
	if err != nil {
		return nil, err
	}

	evalFactory, err := d.reg.Evaluator(cfg.Objective.Name)
	if err != nil {
		return nil, err
	}
	eval, err := evalFactory(cfg)
	if err != nil {
		return nil, err
	}

	selector, err := d.buildSelector(cfg)
	if err != nil {
		return nil, err
	}

	h := newHandle(cfg)
	go func() {
		select {
		case <-ctx.Done():
			h.Cancel()
		case <-h.done:
		}
	}()
	go d.run(h, cfg, strategy, eval, selector, initial.Clone())
	return h, nil
}

// buildSelector resolves the configured perturbers in name order, so the
// weighted draw sequence is deterministic for a given configuration.
func (d *Driver) buildSelector(cfg optimization.RunConfig) (*perturbers.Selector, error) {
	names := make([]string, 0, len(cfg.Perturbers))
	for name := range cfg.Perturbers {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]perturbers.Entry, 0, len(names))
	for _, name := range names {
		factory, err := d.reg.Perturber(name)
		if err != nil {
			return nil, err
		}
		p, err := factory(cfg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, perturbers.Entry{Perturber: p, Weight: cfg.Perturbers[name]})
	}
	return perturbers.NewSelector(entries)
}

// run is the worker loop. It is the sole owner of the live grid; everything
// leaving the loop is a clone.
func (d *Driver) run(h *Handle, cfg optimization.RunConfig, strategy optimization.Strategy, eval optimization.Evaluator, selector *perturbers.Selector, current *optimization.Grid) {
	log := d.log.With(
		zap.String("solver", strategy.Name()),
		zap.Int64("seed", cfg.Seed),
	)
	log.Info("run started",
		zap.Int("rows", current.Rows()),
		zap.Int("cols", current.Cols()),
		zap.Int("max_iterations", cfg.MaxIterations),
	)

	rng := rand.New(rand.NewSource(cfg.Seed))
	dir := eval.Direction()
	start := time.Now()

	curScore, err := eval.Score(current)
	if err != nil {
		d.finish(h, log, &optimization.RunResult{
			Outcome:   optimization.OutcomeFailed,
			Reason:    optimization.ReasonEvaluationFault,
			Best:      current.Clone(),
			BestScore: curScore,
			Elapsed:   time.Since(start),
			Seed:      cfg.Seed,
			Err:       err,
		})
		return
	}

	best := current.Clone()
	bestScore := curScore
	curNorm := dir.Normalize(curScore.Value)
	bestNorm := curNorm

	iterations := 0
	accepted := 0
	sinceImprovement := 0

	fail := func(err error) {
		d.finish(h, log, &optimization.RunResult{
			Outcome:    optimization.OutcomeFailed,
			Reason:     optimization.ReasonEvaluationFault,
			Best:       best,
			BestScore:  bestScore,
			Iterations: iterations,
			Accepted:   accepted,
			Elapsed:    time.Since(start),
			Seed:       cfg.Seed,
			Err:        err,
		})
	}

	for iter := 0; ; iter++ {
		// Cancellation and pause are honored at iteration boundaries only.
		if h.interrupted() {
			d.finish(h, log, &optimization.RunResult{
				Outcome:    optimization.OutcomeCancelled,
				Reason:     optimization.ReasonCancelled,
				Best:       best,
				BestScore:  bestScore,
				Iterations: iterations,
				Accepted:   accepted,
				Elapsed:    time.Since(start),
				Seed:       cfg.Seed,
			})
			return
		}

		move, delta, err := d.propose(cfg, selector, eval, current, iter, rng)
		if err != nil {
			fail(err)
			return
		}

		candNorm := dir.Normalize(curScore.Value + delta.Value)
		wasAccepted := strategy.Accept(optimization.Decision{
			Current:   curNorm,
			Candidate: candNorm,
			Best:      bestNorm,
			Move:      move,
			Iteration: iter,
		}, rng)

		if wasAccepted {
			if err := move.Apply(current); err != nil {
				fail(err)
				return
			}
			strategy.MoveAccepted(move)
			curScore = curScore.Add(delta)
			curNorm = dir.Normalize(curScore.Value)
			accepted++

			if curNorm < bestNorm {
				bestNorm = curNorm
				bestScore = curScore
				best = current.Clone()
				sinceImprovement = 0
			} else {
				sinceImprovement++
			}
		} else {
			sinceImprovement++
		}

		iterations = iter + 1
		if d.obs != nil {
			d.obs.ObserveIteration(wasAccepted)
		}

		if iterations%cfg.ProgressEvery == 0 {
			h.publish(optimization.Progress{
				Iteration:    iterations,
				CurrentValue: curScore.Value,
				BestValue:    bestScore.Value,
				Accepted:     accepted,
				Elapsed:      time.Since(start),
				Snapshot:     best.Clone(),
			})
		}

		if reason, done := strategy.Terminate(iterations, time.Since(start), sinceImprovement); done {
			d.finish(h, log, &optimization.RunResult{
				Outcome:    optimization.OutcomeCompleted,
				Reason:     reason,
				Best:       best,
				BestScore:  bestScore,
				Iterations: iterations,
				Accepted:   accepted,
				Elapsed:    time.Since(start),
				Seed:       cfg.Seed,
			})
			return
		}
		if cfg.MaxDuration > 0 && time.Since(start) >= cfg.MaxDuration.Std() {
			d.finish(h, log, &optimization.RunResult{
				Outcome:    optimization.OutcomeCompleted,
				Reason:     optimization.ReasonDeadline,
				Best:       best,
				BestScore:  bestScore,
				Iterations: iterations,
				Accepted:   accepted,
				Elapsed:    time.Since(start),
				Seed:       cfg.Seed,
			})
			return
		}
	}
}

func (d *Driver) finish(h *Handle, log *zap.Logger, res *optimization.RunResult) {
	if d.obs != nil {
		d.obs.ObserveRun(res.Outcome, res.Elapsed, res.BestScore.Value)
	}
	fields := []zap.Field{
		zap.String("outcome", string(res.Outcome)),
		zap.String("reason", string(res.Reason)),
		zap.Int("iterations", res.Iterations),
		zap.Int("accepted", res.Accepted),
		zap.Float64("best", res.BestScore.Value),
		zap.Duration("elapsed", res.Elapsed),
	}
	if res.Err != nil {
		log.Error("run failed", append(fields, zap.Error(res.Err))...)
	} else {
		log.Info("run finished", fields...)
	}
	h.finish(res)
}
