package domain

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// APIError is the error body returned by the HTTP and MCP surfaces.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for the outer surfaces
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUndefinedMetric = "UNDEFINED_METRIC"
	ErrCodeNoAssessment    = "NO_ASSESSMENT"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer  = "INTERNAL_SERVER_ERROR"
)

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

// ValidationError is a malformed or out-of-range submitted field.
// It is raised before a record is built and is meant to be shown to the clinician.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// UndefinedMetricError is returned when a metric name is absent from a record
// or is not a registered metric.
type UndefinedMetricError struct {
	Metric string `json:"metric"`
}

func (e *UndefinedMetricError) Error() string {
	return fmt.Sprintf("undefined metric %q", e.Metric)
}

// IsValidationError reports whether err carries at least one ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationErrors flattens err (possibly a multierr combination) into its validation errors.
func ValidationErrors(err error) []*ValidationError {
	errs := multierr.Errors(err)
	var group interface{ Errors() []error }
	if errors.As(err, &group) {
		errs = group.Errors()
	}

	var out []*ValidationError
	for _, e := range errs {
		var ve *ValidationError
		if errors.As(e, &ve) {
			out = append(out, ve)
		}
	}
	return out
}

// IsUndefinedMetric reports whether err is an UndefinedMetricError.
func IsUndefinedMetric(err error) bool {
	var ue *UndefinedMetricError
	return errors.As(err, &ue)
}
