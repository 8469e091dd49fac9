package common

import (
	"fmt"
	"net/http"
)

// Machine-readable reason codes surfaced alongside HTTP status codes.
const (
	ReasonValidation       = "VALIDATION_ERROR"
	ReasonRateLimited      = "RATE_LIMIT_EXCEEDED"
	ReasonDuplicateReview  = "DUPLICATE_REVIEW"
	ReasonGeofence         = "GEOFENCE_VIOLATION"
	ReasonPoorGPSAccuracy  = "POOR_GPS_ACCURACY"
	ReasonMockLocation     = "MOCK_LOCATION_DETECTED"
	ReasonSecurityConcerns = "MULTIPLE_SECURITY_CONCERNS"
	ReasonCouponConflict   = "COUPON_CONFLICT"
	ReasonNotFound         = "NOT_FOUND"
	ReasonInternal         = "INTERNAL_ERROR"
)

// AppError is the application error carried from services up to handlers.
// Code is the HTTP status the error maps to, Reason is a stable
// machine-readable code, Message is safe to show to the caller.
type AppError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithReason attaches a machine-readable reason code
func (e *AppError) WithReason(reason string) *AppError {
	e.Reason = reason
	return e
}

// NewBadRequestError creates a 400 error
func NewBadRequestError(message string, err error) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message, Err: err}
}

// NewUnauthorizedError creates a 401 error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: message}
}

// NewForbiddenError creates a 403 error
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Message: message}
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{Code: http.StatusNotFound, Reason: ReasonNotFound, Message: message, Err: err}
}

// NewConflictError creates a 409 error
func NewConflictError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: message}
}

// NewTooManyRequestsError creates a 429 error
func NewTooManyRequestsError(message string) *AppError {
	return &AppError{Code: http.StatusTooManyRequests, Reason: ReasonRateLimited, Message: message}
}

// NewInternalServerError creates a 500 error
func NewInternalServerError(message string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Reason: ReasonInternal, Message: message}
}

// NewServiceUnavailableError creates a 503 error
func NewServiceUnavailableError(message string) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Message: message}
}
