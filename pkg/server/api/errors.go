package api

import (
	"errors"
	"net/http"

	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/export/jobs"
	"mercator-hq/tabula/pkg/export/schedule"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes the failure.
type ErrorDetail struct {
	// Message is a human-readable error description.
	Message string `json:"message"`

	// Type is the error category.
	Type string `json:"type"`

	// Code is a machine-readable code, usually an export error kind.
	Code string `json:"code,omitempty"`
}

// Error types.
const (
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeNotFound       = "not_found_error"
	ErrorTypeUnavailable    = "service_unavailable"
	ErrorTypeServer         = "server_error"
)

// Error codes not covered by export error kinds.
const (
	CodeQueueFull    = "queue_full"
	CodeShuttingDown = "shutting_down"
	CodeNotFound     = "not_found"
	CodeBodyTooLarge = "body_too_large"
)

// NewInvalidRequestError creates a 400 error.
func NewInvalidRequestError(message, code string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Message: message, Type: ErrorTypeInvalidRequest, Code: code}}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Message: message, Type: ErrorTypeNotFound, Code: CodeNotFound}}
}

// NewServerError creates a 500 error.
func NewServerError(message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Message: message, Type: ErrorTypeServer}}
}

// HTTPStatusCode maps the error type to an HTTP status code.
func (e *ErrorResponse) HTTPStatusCode() int {
	switch e.Error.Type {
	case ErrorTypeInvalidRequest:
		if e.Error.Code == CodeBodyTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorFrom classifies err into an API error.
func errorFrom(err error) *ErrorResponse {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return NewInvalidRequestError("request body too large", CodeBodyTooLarge)
	case export.IsKind(err, export.InvalidRequest), export.IsKind(err, export.MalformedScope):
		return NewInvalidRequestError(err.Error(), string(export.KindOf(err)))
	case errors.Is(err, jobs.ErrNotFound):
		return NewNotFoundError("export job not found")
	case errors.Is(err, schedule.ErrUnknownSchedule):
		return NewNotFoundError(err.Error())
	case errors.Is(err, jobs.ErrQueueFull):
		return &ErrorResponse{Error: ErrorDetail{Message: "export queue is full, retry later", Type: ErrorTypeUnavailable, Code: CodeQueueFull}}
	case errors.Is(err, jobs.ErrClosed):
		return &ErrorResponse{Error: ErrorDetail{Message: "server is shutting down", Type: ErrorTypeUnavailable, Code: CodeShuttingDown}}
	default:
		return NewServerError("internal error")
	}
}
