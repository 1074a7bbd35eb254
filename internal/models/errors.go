package models

import "fmt"

// ValidationError reports unsupported or empty input. It is surfaced to the
// caller immediately, before the pipeline has any side effects.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NewValidationError creates a ValidationError with the given reason.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ExternalServiceError wraps a failure from the embedding provider, the
// completion provider, or the vector index. There is no retry policy in this
// service; the error propagates to the caller as-is.
type ExternalServiceError struct {
	Service string // "embedding", "completion", "vector_index"
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an unknown document or session. It is also returned
// for resources owned by a different tenant, so existence never leaks across
// tenant boundaries.
type NotFoundError struct {
	Resource string // "document", "session"
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}
