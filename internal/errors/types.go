package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type for categorization
type ErrorCode string

const (
	// Request errors
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrBadRequest   ErrorCode = "BAD_REQUEST"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Backend errors
	ErrStore       ErrorCode = "STORE_FAILED"
	ErrUpstreamAPI ErrorCode = "UPSTREAM_API_FAILED"
	ErrInternal    ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Unauthorized creates an authentication failure error
func Unauthorized(message string) *AppError {
	return &AppError{Code: ErrUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// BadRequest creates a malformed-input error
func BadRequest(message string, cause error) *AppError {
	return &AppError{Code: ErrBadRequest, Message: message, HTTPStatus: http.StatusBadRequest, Cause: cause}
}

// NotFound creates a missing-resource error
func NotFound(message string) *AppError {
	return &AppError{Code: ErrNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// Store wraps a queue backend failure
func Store(message string, cause error) *AppError {
	return &AppError{Code: ErrStore, Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// Upstream wraps a failure talking to an external API
func Upstream(message string, cause error) *AppError {
	return &AppError{Code: ErrUpstreamAPI, Message: message, HTTPStatus: http.StatusBadGateway, Cause: cause}
}

// Internal wraps an unexpected failure
func Internal(message string, cause error) *AppError {
	return &AppError{Code: ErrInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// StatusOf returns the HTTP status for an error, defaulting to 500
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
