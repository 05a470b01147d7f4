package engine

import (
	stderr "errors"
	"fmt"
)

// ExecutionError reports a genuine computation fault raised by code running
// in the engine. It is distinct from ConnectionError and must be propagated
// to the caller as an execution failure.
type ExecutionError struct {
	Identifier string
	Message    string
}

// Error is an implementation of the error interface.
func (e *ExecutionError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("execution error %s: %s", e.Identifier, e.Message)
	}
	return fmt.Sprintf("execution error: %s", e.Message)
}

// ConnectionError reports a fault in the engine channel itself, such as a
// stalled or severed connection. The engine's own error channel can emit a
// stale ConnectionError after a debugging session ends, so callers that
// already know the call completed treat it as benign.
type ConnectionError struct {
	Message string
	Err     error
}

// Error is an implementation of the error interface.
func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine connection: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("engine connection: %s", e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ConnectionError) Unwrap() error { return e.Err }

// IsExecutionError reports whether an ExecutionError is part of the error chain.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return stderr.As(err, &ee)
}

// IsConnectionError reports whether a ConnectionError is part of the error chain.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return stderr.As(err, &ce)
}
