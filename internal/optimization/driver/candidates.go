package driver

import (
	"math/rand"
	"sync"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
	"github.com/scrambleopt/scrambleopt/internal/optimization/perturbers"
)

// forkSeed derives the seed for one parallel proposal branch. The mix keeps
// branch streams disjoint from each other and from the main rng across
// iterations.
func forkSeed(seed int64, iteration, branch int) int64 {
	const mix = int64(-0x61C8864680B583EB) // 0x9E3779B97F4A7C15 as int64
	return seed ^ (int64(iteration)+1)*mix ^ int64(branch+1)
}

// propose generates the iteration's candidate move and its score delta.
//
// With Candidates == 1 the move is drawn from the run's main rng. With more
// candidates, each branch proposes and scores independently on its own
// reproducibly forked rng, and the best-scoring candidate (ties broken by
// branch index) goes to the strategy. Proposal and delta evaluation are
// read-only on the grid, so branches run concurrently. Results are
// deterministic for a fixed candidate count but not across differing counts.
func (d *Driver) propose(cfg optimization.RunConfig, selector *perturbers.Selector, eval optimization.Evaluator, g *optimization.Grid, iteration int, rng *rand.Rand) (optimization.Move, optimization.Score, error) {
	if cfg.Candidates == 1 {
		move, err := selector.Propose(g, rng)
		if err != nil {
			return optimization.Move{}, optimization.Score{}, err
		}
		delta, err := eval.Delta(g, move)
		if err != nil {
			return optimization.Move{}, optimization.Score{}, err
		}
		return move, delta, nil
	}

	type branch struct {
		move  optimization.Move
		delta optimization.Score
		err   error
	}
	branches := make([]branch, cfg.Candidates)

	var wg sync.WaitGroup
	for i := range branches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			crng := rand.New(rand.NewSource(forkSeed(cfg.Seed, iteration, i)))
			move, err := selector.Propose(g, crng)
			if err != nil {
				branches[i].err = err
				return
			}
			delta, err := eval.Delta(g, move)
			if err != nil {
				branches[i].err = err
				return
			}
			branches[i] = branch{move: move, delta: delta}
		}(i)
	}
	wg.Wait()

	dir := eval.Direction()
	bestIdx := -1
	bestVal := 0.0
	for i, b := range branches {
		if b.err != nil {
			return optimization.Move{}, optimization.Score{}, b.err
		}
		v := dir.Normalize(b.delta.Value)
		if bestIdx < 0 || v < bestVal {
			bestIdx, bestVal = i, v
		}
	}
	return branches[bestIdx].move, branches[bestIdx].delta, nil
}
