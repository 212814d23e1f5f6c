package logger

import "fmt"

// ObservabilityError reports a logging or metrics subsystem that could not be
// initialized. Such failures are fatal at startup.
type ObservabilityError struct {
	Subsystem string // e.g. "file sink", "loki", "prometheus exporter"
	Err       error
}

// Error implements the error interface for ObservabilityError.
func (e *ObservabilityError) Error() string {
	return fmt.Sprintf("%s initialization failed: %v", e.Subsystem, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ObservabilityError) Unwrap() error {
	return e.Err
}
