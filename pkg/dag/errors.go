package dag

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrInvalidOperation indicates a violation of the per-node evaluation
	// state machine (double finish, value added to a finished node, and so
	// on). It is always a programming or configuration defect.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotFound indicates a lookup for a node, root index, or registry
	// entry that was never recorded.
	ErrNotFound = errors.New("not found")
)

// EvalError wraps a failure raised while calculating a node, preserving
// the node's canonical text for diagnostics.
type EvalError struct {
	Sexpr string
	Cause error
}

// Error returns the error message.
func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluating %s: %v", e.Sexpr, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvalError) Unwrap() error {
	return e.Cause
}

// ValidationError reports the accumulated issues of a validation pass.
// Callers treat any reported error as load-time fatal.
type ValidationError struct {
	Report *Reporter
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s): %s",
		e.Report.NumErrors(), e.Report.Summary())
}
