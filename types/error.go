package types

import "fmt"

// ErrorCode identifies a class of engine failure.
type ErrorCode string

// Dispatch error codes
const (
	ErrFunctionNotFound   ErrorCode = "FUNCTION_NOT_FOUND"
	ErrCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"
	ErrRetryExhausted     ErrorCode = "RETRY_EXHAUSTED"
	ErrConcurrencyCap     ErrorCode = "CONCURRENCY_CAP_EXCEEDED"
	ErrExecutionTimeout   ErrorCode = "EXECUTION_TIMEOUT"
)

// Workflow error codes
const (
	ErrWorkflowValidation  ErrorCode = "WORKFLOW_VALIDATION"
	ErrWorkflowNotFound    ErrorCode = "WORKFLOW_NOT_FOUND"
	ErrWorkflowInactive    ErrorCode = "WORKFLOW_INACTIVE"
	ErrStepNotFound        ErrorCode = "STEP_NOT_FOUND"
	ErrConditionEvaluation ErrorCode = "CONDITION_EVALUATION"
)

// Error is the structured error used across the engine. It wraps an
// optional cause and marks whether the failing operation may be retried.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
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

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable reports whether err is a retryable engine error.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an engine error, or "" for
// foreign errors.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
