package core

import "fmt"

// ValidationError reports malformed fan-in input: an empty container, mixed
// payload shapes within one container, or an unrecognized payload type. It is
// always a caller bug and is never retried by the library.
type ValidationError struct {
	Source string // offending source id, when attributable to one source
	Shape  string // observed shape of the container or element
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid fan-in input (source %q, shape %s): %s", e.Source, e.Shape, e.Reason)
	}
	if e.Shape != "" {
		return fmt.Sprintf("invalid fan-in input (shape %s): %s", e.Shape, e.Reason)
	}
	return fmt.Sprintf("invalid fan-in input: %s", e.Reason)
}

// SchemaValidationError reports that a worker's structured output could not
// be coerced into the requested shape.
type SchemaValidationError struct {
	Reason string
	Err    error // underlying decode / validation failure, if any
}

// Error implements the error interface.
func (e *SchemaValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structured result does not conform to schema: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("structured result does not conform to schema: %s", e.Reason)
}

// Unwrap exposes the underlying failure for errors.Is / errors.As.
func (e *SchemaValidationError) Unwrap() error { return e.Err }

// WorkerInvocationError wraps an opaque failure from an underlying generation
// worker. The library adds no retry or backoff; Unwrap exposes the true
// failure so callers can make their own retry decisions.
type WorkerInvocationError struct {
	Worker string
	Err    error
}

// Error implements the error interface.
func (e *WorkerInvocationError) Error() string {
	if e.Worker != "" {
		return fmt.Sprintf("worker %q invocation failed: %v", e.Worker, e.Err)
	}
	return fmt.Sprintf("worker invocation failed: %v", e.Err)
}

// Unwrap exposes the worker's original error.
func (e *WorkerInvocationError) Unwrap() error { return e.Err }
