package types

import "fmt"

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

const (
	// Upstream API failures (after retries are exhausted).
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"

	// Store failures.
	ErrCodeInternalDB ErrorCode = "internal_database_error"

	// Lookup failures surfaced by the read API.
	ErrCodeNotFoundStation ErrorCode = "not_found_station"

	// Bad request input on the read API.
	ErrCodeValidationInvalidParam ErrorCode = "validation_invalid_param"

	// Everything else.
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// AppError is the standard application error type. Domain errors are
// expressed as AppError to enable consistent formatting and error chain
// support via errors.Is/errors.As.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to an HTTP response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFoundStation:
		return 404
	case ErrCodeValidationInvalidParam:
		return 400
	case ErrCodeUpstreamRateLimited:
		return 429
	case ErrCodeUpstreamUnavailable:
		return 502
	default:
		return 500
	}
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
