package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Validation error",
			code:      ErrCodeValidation,
			message:   "ACL-RSI out of range",
			details:   "acl_rsi must be between 0 and 100",
			requestID: "req-123",
		},
		{
			name:      "Not found",
			code:      ErrCodeNotFound,
			message:   "Patient not found",
			details:   "no patient with MRN #999999",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("lefs", "must be between 0 and 80", 95)

	if err.Field != "lefs" {
		t.Errorf("Expected field lefs, got %s", err.Field)
	}
	if err.Value != 95 {
		t.Errorf("Expected value 95, got %v", err.Value)
	}
	expected := "validation error for field 'lefs': must be between 0 and 80"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestValidationErrorsUnpacksCombinedErrors(t *testing.T) {
	combined := multierr.Combine(
		NewValidationError("acl_rsi", "out of range", 120),
		NewValidationError("lefs", "out of range", -1),
	)
	wrapped := fmt.Errorf("building record: %w", combined)

	for _, err := range []error{combined, wrapped} {
		if !IsValidationError(err) {
			t.Fatalf("expected %v to be a validation error", err)
		}
		got := ValidationErrors(err)
		if len(got) != 2 {
			t.Fatalf("Expected 2 validation errors, got %d", len(got))
		}
		if got[0].Field != "acl_rsi" || got[1].Field != "lefs" {
			t.Errorf("unexpected fields %s, %s", got[0].Field, got[1].Field)
		}
	}

	if IsValidationError(errors.New("boom")) {
		t.Error("plain error should not be a validation error")
	}
}

func TestUndefinedMetricError(t *testing.T) {
	var err error = &UndefinedMetricError{Metric: "Grip"}
	if !IsUndefinedMetric(fmt.Errorf("series: %w", err)) {
		t.Error("wrapped undefined metric error should be detected")
	}
	if err.Error() != `undefined metric "Grip"` {
		t.Errorf("unexpected message %q", err.Error())
	}
}
