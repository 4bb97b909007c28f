package optimization

import "time"

// Outcome is the terminal state of a run.
type Outcome string

const (
	// OutcomeCompleted means the solver's termination policy ended the run.
	OutcomeCompleted Outcome = "completed"
	// OutcomeCancelled means the caller requested cancellation; the result
	// carries the best state found so far.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeFailed means an evaluation fault aborted the run; the best
	// state found before the fault is preserved.
	OutcomeFailed Outcome = "failed"
)

// TerminationReason records why a run reached its terminal state.
type TerminationReason string

const (
	ReasonIterationBudget  TerminationReason = "iteration budget exhausted"
	ReasonStalled          TerminationReason = "no improvement within stall budget"
	ReasonTemperatureFloor TerminationReason = "temperature fell below floor"
	ReasonDeadline         TerminationReason = "duration bound reached"
	ReasonCancelled        TerminationReason = "cancellation requested"
	ReasonEvaluationFault  TerminationReason = "evaluation fault"
)

// RunResult is the terminal outcome of one run: the best grid found, its
// score, counters, and the seed needed to reproduce the run. It is delivered
// exactly once and owned by the caller thereafter.
type RunResult struct {
	Outcome    Outcome           `json:"outcome"`
	Reason     TerminationReason `json:"reason"`
	Best       *Grid             `json:"-"`
	BestScore  Score             `json:"bestScore"`
	Iterations int               `json:"iterations"`
	Accepted   int               `json:"accepted"`
	Elapsed    time.Duration     `json:"elapsed"`
	Seed       int64             `json:"seed"`
	// Err is set for OutcomeFailed.
	Err error `json:"-"`
}

// Progress is one coalesced tick from the driver to the viewer: a read-only
// grid snapshot plus iteration and score metadata. Intermediate ticks may be
// dropped when the consumer is slower than the producer; the final RunResult
// never is.
type Progress struct {
	Iteration    int
	CurrentValue float64
	BestValue    float64
	Accepted     int
	Elapsed      time.Duration
	// Snapshot is an independent copy of the best grid so far.
	Snapshot *Grid
}
