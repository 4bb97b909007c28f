// Package store persists finished run results as JSON records on disk.
package store

import (
	"time"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
	"github.com/scrambleopt/scrambleopt/internal/raster"
)

// Record is the persisted form of a finished run.
type Record struct {
	ID        string                         `json:"id"`
	CreatedAt time.Time                      `json:"created_at"`
	Config    optimization.RunConfig         `json:"config"`
	Outcome   optimization.Outcome           `json:"outcome"`
	Reason    optimization.TerminationReason `json:"reason"`

	Rows   int                 `json:"rows"`
	Cols   int                 `json:"cols"`
	Domain optimization.Domain `json:"domain"`
	Cells  []float64           `json:"cells"`
	Geo    raster.Georeference `json:"geo,omitempty"`

	BestValue  float64            `json:"best_value"`
	Components map[string]float64 `json:"components,omitempty"`
	Iterations int                `json:"iterations"`
	Accepted   int                `json:"accepted"`
	Elapsed    time.Duration      `json:"elapsed_ns"`
	Seed       int64              `json:"seed"`
	Error      string             `json:"error,omitempty"`
}

// NewRecord flattens a run result into its persisted form.
func NewRecord(id string, cfg optimization.RunConfig, res *optimization.RunResult, geo raster.Georeference) *Record {
	rec := &Record{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		Config:     cfg,
		Outcome:    res.Outcome,
		Reason:     res.Reason,
		BestValue:  res.BestScore.Value,
		Components: res.BestScore.Components,
		Iterations: res.Iterations,
		Accepted:   res.Accepted,
		Elapsed:    res.Elapsed,
		Seed:       res.Seed,
		Geo:        geo,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if res.Best != nil {
		rec.Rows = res.Best.Rows()
		rec.Cols = res.Best.Cols()
		rec.Domain = res.Best.Domain()
		rec.Cells = res.Best.Values()
	}
	return rec
}

// Grid reconstructs the persisted best grid.
func (r *Record) Grid() (*optimization.Grid, error) {
	return optimization.NewGrid(r.Rows, r.Cols, r.Domain, r.Cells)
}

// Info is the listing metadata of a record.
type Info struct {
	ID         string                         `json:"id"`
	CreatedAt  time.Time                      `json:"created_at"`
	Outcome    optimization.Outcome           `json:"outcome"`
	Reason     optimization.TerminationReason `json:"reason"`
	BestValue  float64                        `json:"best_value"`
	Iterations int                            `json:"iterations"`
}

// ToInfo extracts listing metadata from the record.
func (r *Record) ToInfo() Info {
	return Info{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		Outcome:    r.Outcome,
		Reason:     r.Reason,
		BestValue:  r.BestValue,
		Iterations: r.Iterations,
	}
}

// Store persists run records. Implementations must be safe for concurrent
// use.
type Store interface {
	Save(rec *Record) error
	Load(id string) (*Record, error)
	List() ([]Info, error)
	Delete(id string) error
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "run record not found: " + e.ID
	}
	return "run record not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ErrNotFound matches any NotFoundError via errors.Is.
var ErrNotFound = &NotFoundError{}
