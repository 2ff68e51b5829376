package audit

import "fmt"

// SinkError represents a failure of an audit sink.
type SinkError struct {
	Sink      string // Sink type ("sqlite", "pubsub", ...)
	Operation string // Operation that failed
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("audit sink error [sink=%s, operation=%s]: %v", e.Sink, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SinkError) Unwrap() error {
	return e.Cause
}

// NewSinkError creates a new SinkError.
func NewSinkError(sink, operation string, cause error) *SinkError {
	return &SinkError{
		Sink:      sink,
		Operation: operation,
		Cause:     cause,
	}
}
