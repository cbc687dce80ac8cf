package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput     = "INVALID_INPUT"
	ErrInsufficientData = "INSUFFICIENT_DATA"
	ErrDatabaseError    = "DATABASE_ERROR"
	ErrExternalAPI      = "EXTERNAL_API_ERROR"
	ErrRateLimit        = "RATE_LIMIT_EXCEEDED"
	ErrNotFoundCode     = "NOT_FOUND"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrValidation       = "VALIDATION_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// InsufficientDataError is returned by the recommendation router when the clinical input
// scores below the Quick threshold. It is a user-facing condition and is never retried.
type InsufficientDataError struct {
	Score    int
	Warnings []string
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("Data tidak cukup untuk memberikan rekomendasi. Skor: %d/100.", e.Score)
	if len(e.Warnings) > 0 {
		msg += " " + strings.Join(e.Warnings, ". ")
	}
	return msg
}

// UpstreamError wraps a failure of the hosted model call or a malformed model response.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Gagal menghasilkan rekomendasi: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ClassifyError maps an error returned by the services onto an HTTP status and an
// APIError code.
func ClassifyError(err error) (int, string) {
	var insufficient *InsufficientDataError
	var upstream *UpstreamError
	var validation *ValidationError
	var apiErr *APIError

	switch {
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity, ErrInsufficientData
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrValidation
	case errors.As(err, &upstream):
		return http.StatusBadGateway, ErrExternalAPI
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrNotFoundCode
	case errors.As(err, &apiErr):
		switch apiErr.Code {
		case ErrInvalidInput, ErrValidation:
			return http.StatusBadRequest, apiErr.Code
		case ErrRateLimit:
			return http.StatusTooManyRequests, apiErr.Code
		default:
			return http.StatusInternalServerError, apiErr.Code
		}
	default:
		return http.StatusInternalServerError, ErrInternalServer
	}
}
