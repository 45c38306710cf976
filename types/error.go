package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Stage execution error codes
const (
	ErrExecutionFailed  ErrorCode = "EXECUTION_FAILED"
	ErrEvaluationFailed ErrorCode = "EVALUATION_FAILED"
	ErrBudgetExhausted  ErrorCode = "BUDGET_EXHAUSTED"
)

// Evolution structure error codes
const (
	ErrDuplicateNode      ErrorCode = "DUPLICATE_NODE"
	ErrMissingParent      ErrorCode = "MISSING_PARENT"
	ErrIDCollision        ErrorCode = "ID_COLLISION"
	ErrGenerationMismatch ErrorCode = "GENERATION_MISMATCH"
	ErrNodeNotFound       ErrorCode = "NODE_NOT_FOUND"
)

// Orchestration error codes
const (
	ErrPipelineNotFound  ErrorCode = "PIPELINE_NOT_FOUND"
	ErrAgentNotFound     ErrorCode = "AGENT_NOT_FOUND"
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrInvalidConfig     ErrorCode = "INVALID_CONFIG"
)

// Infrastructure error codes
const (
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrQueueUnavailable    ErrorCode = "QUEUE_UNAVAILABLE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Provider  string    `json:"provider,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// NewExecutionError wraps a stage execution failure.
func NewExecutionError(stage string, cause error) *Error {
	return NewError(ErrExecutionFailed, fmt.Sprintf("%s stage execution failed", stage)).WithCause(cause)
}

// NewEvaluationError wraps a scoring failure.
func NewEvaluationError(stage string, cause error) *Error {
	return NewError(ErrEvaluationFailed, fmt.Sprintf("%s stage evaluation failed", stage)).WithCause(cause)
}

// NewInvalidConfigError reports an invalid configuration value.
func NewInvalidConfigError(detail string) *Error {
	return NewError(ErrInvalidConfig, detail)
}

// NewPipelineNotFoundError reports an unknown pipeline id.
func NewPipelineNotFoundError(id string) *Error {
	return NewError(ErrPipelineNotFound, fmt.Sprintf("pipeline %q not found", id))
}

// NewAgentNotFoundError reports an unknown agent id.
func NewAgentNotFoundError(id string) *Error {
	return NewError(ErrAgentNotFound, fmt.Sprintf("agent %q not found", id))
}
