package errors

import (
	"errors"
	"fmt"
	"time"
)

// Base error types
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTimeout      = errors.New("timeout")
	ErrDependency   = errors.New("dependency unavailable")
	ErrInternal     = errors.New("internal error")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeInput       ErrorType = "input"       // malformed CSV, bad options, missing KB columns
	ErrorTypeComputation ErrorType = "computation" // aggregation failure, recovered locally
	ErrorTypeDependency  ErrorType = "dependency"  // generator or embedder unavailable
	ErrorTypeNotFound    ErrorType = "not_found"   // session id absent on direct get/delete
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeInternal    ErrorType = "internal"
)

// TriageError is a structured error for triage and chat operations
type TriageError struct {
	Type      ErrorType
	Op        string // Operation that failed (e.g., "parse_csv", "embed_query")
	Subject   string // What the operation was acting on (dataset, session id, provider)
	Err       error  // Underlying error
	Timestamp time.Time
	Retryable bool
}

func (e *TriageError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s failed on %s: %v", e.Op, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TriageError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *TriageError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrInvalidInput:
		return e.Type == ErrorTypeInput
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	case ErrDependency:
		return e.Type == ErrorTypeDependency
	}

	return errors.Is(e.Err, target)
}

// New creates a new TriageError
func New(errorType ErrorType, op, subject string, err error) *TriageError {
	return &TriageError{
		Type:      errorType,
		Op:        op,
		Subject:   subject,
		Err:       err,
		Timestamp: time.Now(),
		Retryable: isRetryable(errorType),
	}
}

func isRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeDependency, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// Helper constructors for the taxonomy

// Input wraps a client-side input error (bad CSV, invalid options)
func Input(op, subject string, err error) error {
	return New(ErrorTypeInput, op, subject, err)
}

// Computation wraps an aggregation failure that the caller degrades on
func Computation(op, subject string, err error) error {
	return New(ErrorTypeComputation, op, subject, err)
}

// Dependency wraps an external collaborator failure
func Dependency(op, subject string, err error) error {
	return New(ErrorTypeDependency, op, subject, err)
}

// NotFound wraps a missing-resource error
func NotFound(op, subject string) error {
	return New(ErrorTypeNotFound, op, subject, ErrNotFound)
}

// Timeout wraps an expired call to an external collaborator
func Timeout(op, subject string, err error) error {
	return New(ErrorTypeTimeout, op, subject, err)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var te *TriageError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrDependency)
}

// IsDependencyError reports whether the error came from an external
// collaborator (generator or embedder); timeouts count.
func IsDependencyError(err error) bool {
	var te *TriageError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeDependency || te.Type == ErrorTypeTimeout
	}
	return errors.Is(err, ErrDependency) || errors.Is(err, ErrTimeout)
}
