package types

import "fmt"

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Scope error codes
const (
	ErrScopeClosed     ErrorCode = "SCOPE_CLOSED"
	ErrDuplicateMember ErrorCode = "DUPLICATE_MEMBER"
)

// Packet error codes
const (
	ErrDuplicateDecoration ErrorCode = "DUPLICATE_DECORATION"
	ErrPacketCompleted     ErrorCode = "PACKET_COMPLETED"
	ErrFactoryClosed       ErrorCode = "FACTORY_CLOSED"
	ErrDuplicateFilter     ErrorCode = "DUPLICATE_FILTER"
)

// Relay error codes
const (
	ErrShapeMismatch ErrorCode = "SHAPE_MISMATCH"
)

// Infrastructure error codes
const (
	ErrPoolFull      ErrorCode = "POOL_FULL"
	ErrPoolClosed    ErrorCode = "POOL_CLOSED"
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error represents a structured error with code, message, and metadata.
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

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
