package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies backend failures for the pipeline.
type ErrorKind int

const (
	// ErrorUnknown covers everything not otherwise classified.
	ErrorUnknown ErrorKind = iota
	// ErrorRateLimited means the backend signaled quota exhaustion (429).
	ErrorRateLimited
	// ErrorTransient covers network failures and malformed responses.
	ErrorTransient
)

// String returns a readable kind name for logs.
func (k ErrorKind) String() string {
	switch k {
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// BackendError wraps a completion-backend failure with its classification.
type BackendError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("completion backend %s: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRateLimited checks whether an error is a rate-limit backend failure.
func IsRateLimited(err error) bool {
	var backendErr *BackendError
	return errors.As(err, &backendErr) && backendErr.Kind == ErrorRateLimited
}
