package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// RunState is the observable lifecycle state of a run.
type RunState string

const (
	StateRunning   RunState = "running"
	StatePaused    RunState = "paused"
	StateCompleted RunState = "completed"
	StateCancelled RunState = "cancelled"
	StateFailed    RunState = "failed"
)

// Terminal reports whether the state is a terminal outcome.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Handle is the caller's control surface over a live run. All methods are
// safe for concurrent use. The worker goroutine owns the live grid; the
// handle only ever exposes snapshots and the final result.
type Handle struct {
	cfg optimization.RunConfig

	mu        sync.Mutex
	cond      *sync.Cond
	state     RunState
	pauseWant bool
	cancelled bool
	result    *optimization.RunResult

	// progress holds at most one pending tick; a newer tick replaces an
	// unconsumed older one.
	progress chan optimization.Progress
	done     chan struct{}
}

func newHandle(cfg optimization.RunConfig) *Handle {
	h := &Handle{
		cfg:      cfg,
		state:    StateRunning,
		progress: make(chan optimization.Progress, 1),
		done:     make(chan struct{}),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Config returns the immutable configuration of the run.
func (h *Handle) Config() optimization.RunConfig { return h.cfg }

// State returns the current lifecycle state.
func (h *Handle) State() RunState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Cancel requests cancellation. The worker stops at the next iteration
// boundary and emits a Cancelled result carrying the best grid so far.
// Cancelling a terminal or already-cancelled run is a no-op.
func (h *Handle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() || h.cancelled {
		return
	}
	h.cancelled = true
	h.cond.Broadcast()
}

// Pause asks the worker to park at the next iteration boundary.
func (h *Handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return fmt.Errorf("cannot pause a %s run", h.state)
	}
	h.pauseWant = true
	return nil
}

// Resume releases a paused run back to Running.
func (h *Handle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return fmt.Errorf("cannot resume a %s run", h.state)
	}
	h.pauseWant = false
	h.cond.Broadcast()
	return nil
}

// Progress returns the coalescing progress channel. Intermediate ticks may
// be dropped in favor of the most recent one; the channel is closed when the
// run reaches a terminal state.
func (h *Handle) Progress() <-chan optimization.Progress { return h.progress }

// Done returns a channel closed when the run reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result blocks until the run is terminal and returns its result, or fails
// with the context's error.
func (h *Handle) Result(ctx context.Context) (*optimization.RunResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryResult returns the result if the run is terminal, or ErrNotReady.
func (h *Handle) TryResult() (*optimization.RunResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	default:
		return nil, optimization.ErrNotReady
	}
}

// interrupted is called by the worker once per iteration boundary. It parks
// while a pause is requested and reports whether cancellation was requested.
func (h *Handle) interrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.pauseWant && !h.cancelled {
		h.state = StatePaused
		h.cond.Wait()
	}
	if h.cancelled {
		return true
	}
	h.state = StateRunning
	return false
}

// publish offers a progress tick without ever blocking the worker: if the
// consumer has not drained the previous tick it is replaced.
func (h *Handle) publish(p optimization.Progress) {
	select {
	case h.progress <- p:
		return
	default:
	}
	select {
	case <-h.progress:
	default:
	}
	select {
	case h.progress <- p:
	default:
	}
}

// finish records the terminal result exactly once and releases all waiters.
func (h *Handle) finish(res *optimization.RunResult) {
	h.mu.Lock()
	switch res.Outcome {
	case optimization.OutcomeCancelled:
		h.state = StateCancelled
	case optimization.OutcomeFailed:
		h.state = StateFailed
	default:
		h.state = StateCompleted
	}
	h.result = res
	h.mu.Unlock()

	// done closes first so a consumer that sees the progress channel close
	// can immediately read the result.
	close(h.done)
	close(h.progress)
}
