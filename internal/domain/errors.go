// Package domain provides canonical error types for the API.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// DefaultErrorMessage is reported when a failure carries no usable message.
const DefaultErrorMessage = "Internal server error"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeNotFound indicates a resource was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict indicates the request conflicts with current state.
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeRateLimit indicates rate limiting was triggered.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeUnavailable indicates a backing resource is unavailable.
	ErrorTypeUnavailable ErrorType = "unavailable"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeRateLimitExceeded   ErrorCode = "rate_limit_exceeded"
	ErrorCodeDatabaseUnavailable ErrorCode = "database_unavailable"
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	HTTPStatusCode() int
}

// PublicMessager is implemented by errors whose Error text is for operators
// only. The error stage shows clients PublicMessage instead.
type PublicMessager interface {
	PublicMessage() string
}

// APIError is a failure raised by business logic. The error stage reads its
// status code and message when formatting the failure envelope.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Details is attached to the failure envelope when set
	Details any `json:"details,omitempty"`

	// StatusCode overrides the status derived from Type
	StatusCode int `json:"-"`

	// Err is the underlying cause, if any
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	} else if e.Type != "" {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithDetails attaches structured details to the error.
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithCause records the underlying error.
func (e *APIError) WithCause(err error) *APIError {
	e.Err = err
	return e
}

// Convenience constructors for common errors

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorTypeNotFound, message)
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *APIError {
	return NewAPIError(ErrorTypeConflict, message)
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *APIError {
	return NewAPIError(ErrorTypeRateLimit, message).
		WithCode(ErrorCodeRateLimitExceeded)
}

// ErrUnavailable creates an unavailable error wrapping cause.
func ErrUnavailable(message string, cause error) *APIError {
	return NewAPIError(ErrorTypeUnavailable, message).WithCause(cause)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}

// ErrorStatus extracts the HTTP status code from err, defaulting to 500 when
// nothing in the chain implements StatusCoder with a positive code.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.HTTPStatusCode(); code > 0 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// ErrorMessage extracts the human-readable message from err. An APIError
// reports its Message, a PublicMessager its PublicMessage, and other errors
// Error(). Empty messages fall back to DefaultErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return DefaultErrorMessage
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	var pm PublicMessager
	if errors.As(err, &pm) {
		if msg := pm.PublicMessage(); msg != "" {
			return msg
		}
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}
