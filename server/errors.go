package server

import (
	"errors"
	"maps"
	"net/http"

	"github.com/gaborage/tenantguard/multitenant"
)

// IAPIError defines the interface for API errors with structured information.
type IAPIError interface {
	ErrorCode() string
	Message() string
	HTTPStatus() int
	Details() map[string]any
}

// BaseAPIError provides a basic implementation of IAPIError.
type BaseAPIError struct {
	code       string
	message    string
	httpStatus int
	details    map[string]any
}

// NewBaseAPIError creates a new base API error.
func NewBaseAPIError(code, message string, httpStatus int) *BaseAPIError {
	return &BaseAPIError{
		code:       code,
		message:    message,
		httpStatus: httpStatus,
		details:    make(map[string]any),
	}
}

// ErrorCode returns the error code.
func (e *BaseAPIError) ErrorCode() string {
	return e.code
}

// Message returns the error message.
func (e *BaseAPIError) Message() string {
	return e.message
}

// HTTPStatus returns the HTTP status code.
func (e *BaseAPIError) HTTPStatus() int {
	return e.httpStatus
}

// Details returns additional error details.
func (e *BaseAPIError) Details() map[string]any {
	if e.details == nil {
		return nil
	}
	cp := make(map[string]any, len(e.details))
	maps.Copy(cp, e.details)
	return cp
}

// WithDetails adds details to the error.
func (e *BaseAPIError) WithDetails(key string, value any) *BaseAPIError {
	e.details[key] = value
	return e
}

// Error implements the error interface for BaseAPIError.
func (e *BaseAPIError) Error() string {
	if e == nil {
		return ""
	}
	if e.code == "" {
		return e.message
	}
	return e.code + ": " + e.message
}

// NewBadRequestError creates a new bad request error.
func NewBadRequestError(message string) *BaseAPIError {
	return NewBaseAPIError("BAD_REQUEST", message, http.StatusBadRequest)
}

// NewForbiddenError creates a new forbidden error.
func NewForbiddenError(message string) *BaseAPIError {
	if message == "" {
		message = "Access denied"
	}
	return NewBaseAPIError("FORBIDDEN", message, http.StatusForbidden)
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource string) *BaseAPIError {
	return NewBaseAPIError("NOT_FOUND", resource+" not found", http.StatusNotFound)
}

// NewInternalServerError creates a new internal server error.
func NewInternalServerError(message string) *BaseAPIError {
	if message == "" {
		message = "An internal error occurred"
	}
	return NewBaseAPIError("INTERNAL_ERROR", message, http.StatusInternalServerError)
}

// NewServiceUnavailableError creates a new service unavailable error.
func NewServiceUnavailableError(message string) *BaseAPIError {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return NewBaseAPIError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable)
}

// MapTenancyError translates tenancy failures surfaced by handlers into API errors.
// It returns nil for errors that are not tenancy related.
func MapTenancyError(err error) IAPIError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, multitenant.ErrContextMissing):
		return NewForbiddenError("Tenant context required")
	case errors.Is(err, multitenant.ErrTenantResolutionFailed):
		return NewBadRequestError("Invalid tenant")
	case errors.Is(err, multitenant.ErrTenantNotFound):
		return NewNotFoundError("Tenant")
	case errors.Is(err, multitenant.ErrPropagationFailed):
		return NewServiceUnavailableError("")
	default:
		return nil
	}
}

var _ IAPIError = (*BaseAPIError)(nil)
