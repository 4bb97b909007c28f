// Package viewer consumes progress ticks from a live run and forwards them
// to pluggable sinks, decoupling presentation from the run loop.
package viewer

import (
	"context"

	"go.uber.org/zap"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
	"github.com/scrambleopt/scrambleopt/internal/optimization/driver"
)

// Sink receives the lifecycle of one run: zero or more progress ticks
// followed by exactly one final result.
type Sink interface {
	OnProgress(p optimization.Progress)
	OnResult(res *optimization.RunResult)
}

// LogSink writes progress and results to a structured logger.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink over log.
func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) OnProgress(p optimization.Progress) {
	s.log.Info("progress",
		zap.Int("iteration", p.Iteration),
		zap.Float64("current", p.CurrentValue),
		zap.Float64("best", p.BestValue),
		zap.Int("accepted", p.Accepted),
		zap.Duration("elapsed", p.Elapsed),
	)
}

func (s *LogSink) OnResult(res *optimization.RunResult) {
	fields := []zap.Field{
		zap.String("outcome", string(res.Outcome)),
		zap.String("reason", string(res.Reason)),
		zap.Float64("best", res.BestScore.Value),
		zap.Int("iterations", res.Iterations),
		zap.Int("accepted", res.Accepted),
		zap.Duration("elapsed", res.Elapsed),
	}
	if res.Err != nil {
		s.log.Error("run failed", append(fields, zap.Error(res.Err))...)
		return
	}
	s.log.Info("run finished", fields...)
}

// Pump drains the run's progress channel into the sinks until the run is
// terminal, then delivers the final result exactly once. It returns the
// result, or the context's error if ctx ends first.
func Pump(ctx context.Context, h *driver.Handle, sinks ...Sink) (*optimization.RunResult, error) {
	for {
		select {
		case p, ok := <-h.Progress():
			if !ok {
				res, err := h.Result(ctx)
				if err != nil {
					return nil, err
				}
				for _, s := range sinks {
					s.OnResult(res)
				}
				return res, nil
			}
			for _, s := range sinks {
				s.OnProgress(p)
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
