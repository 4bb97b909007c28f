package optimization

import (
	"errors"
	"fmt"
)

// Kind classifies an optimization error.
type Kind int

const (
	// KindConfiguration covers invalid run configurations: unknown strategy
	// names, non-positive weights, non-finite parameters. Raised before any
	// iteration runs.
	KindConfiguration Kind = iota + 1
	// KindLoad covers unreadable raster sources. Raised before a run starts;
	// no run object is created.
	KindLoad
	// KindEvaluation covers non-finite objective scores. Aborts the run with
	// a Failed outcome, preserving the best state found before the fault.
	KindEvaluation
	// KindNotReady is returned when a result is requested before the run has
	// reached a terminal state.
	KindNotReady
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindLoad:
		return "load"
	case KindEvaluation:
		return "evaluation"
	case KindNotReady:
		return "not ready"
	default:
		return "unknown"
	}
}

// Error is an optimization error with classification and context that can be
// wrapped with additional information.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// NewConfigError creates a configuration error with the given message.
func NewConfigError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// NewConfigErrorf creates a configuration error with a formatted message.
func NewConfigErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewLoadError wraps err as a raster load failure.
func NewLoadError(message string, err error) *Error {
	return &Error{Kind: KindLoad, Message: message, Err: err}
}

// NewEvaluationErrorf creates an evaluation error with a formatted message.
func NewEvaluationErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindEvaluation, Message: fmt.Sprintf(format, args...)}
}

// ErrNotReady is returned when a run result is requested before the run has
// reached a terminal state.
var ErrNotReady = &Error{Kind: KindNotReady, Message: "run has not reached a terminal state"}

// IsKind reports whether err (or anything it wraps) is an optimization error
// of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool { return IsKind(err, KindConfiguration) }

// IsLoadError reports whether err is a raster load error.
func IsLoadError(err error) bool { return IsKind(err, KindLoad) }

// IsEvaluationError reports whether err is an evaluation error.
func IsEvaluationError(err error) bool { return IsKind(err, KindEvaluation) }

// IsNotReady reports whether err signals a run still in flight.
func IsNotReady(err error) bool { return IsKind(err, KindNotReady) }
