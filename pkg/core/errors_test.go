package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryHierarchy,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Category: ErrCategoryHierarchy,
		Code:     "test_error",
		Message:  "test message",
		Cause:    cause,
	}

	got := err.Error()
	if !strings.Contains(got, "test message") {
		t.Errorf("Error() = %q, should contain 'test message'", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrHierarchyUnavailable
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithMessage(t *testing.T) {
	original := ErrNoDevice
	newErr := original.WithMessage("no device matching emulator-5554")

	if newErr.Message != "no device matching emulator-5554" {
		t.Errorf("Message = %q, want custom message", newErr.Message)
	}
	if newErr.Code != original.Code {
		t.Error("WithMessage() changed code")
	}
	if original.Message != "no device connected" {
		t.Error("WithMessage() modified original error")
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := &ExecutionError{
		Code:    "test",
		Message: "test",
		Details: map[string]interface{}{"existing": "value"},
	}

	newErr := original.WithDetails(map[string]interface{}{
		"deviceId": "emulator-5554",
		"length":   12,
	})

	if newErr.Details["deviceId"] != "emulator-5554" {
		t.Error("WithDetails() did not add new details")
	}
	if newErr.Details["existing"] != "value" {
		t.Error("WithDetails() did not preserve existing details")
	}
	if _, ok := original.Details["deviceId"]; ok {
		t.Error("WithDetails() modified original error")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err      *ExecutionError
		category ErrorCategory
		code     string
	}{
		{ErrNoDevice, ErrCategoryConnection, "no_device"},
		{ErrDeviceDisconnected, ErrCategoryConnection, "device_disconnected"},
		{ErrServerUnreachable, ErrCategoryConnection, "server_unreachable"},
		{ErrHierarchyUnavailable, ErrCategoryHierarchy, "hierarchy_unavailable"},
		{ErrInvalidHierarchy, ErrCategoryHierarchy, "invalid_hierarchy"},
		{ErrInvalidConfig, ErrCategoryConfig, "invalid_config"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := map[ErrorCategory]string{
		ErrCategoryNone:       "none",
		ErrCategoryConnection: "connection",
		ErrCategoryHierarchy:  "hierarchy",
		ErrCategoryConfig:     "config",
		ErrorCategory(99):     "unknown",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", c, got, want)
		}
	}
}

func TestNewExecutionError(t *testing.T) {
	err := NewExecutionError(ErrCategoryHierarchy, "custom_error", "custom message")

	if err.Category != ErrCategoryHierarchy {
		t.Errorf("Category = %s, want %s", err.Category, ErrCategoryHierarchy)
	}
	if err.Code != "custom_error" {
		t.Errorf("Code = %s, want 'custom_error'", err.Code)
	}
	if err.Message != "custom message" {
		t.Errorf("Message = %s, want 'custom message'", err.Message)
	}
}

func TestExecutionError_ErrorsIs(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrDeviceDisconnected.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
	if !errors.Is(err, ErrDeviceDisconnected) {
		t.Error("errors.Is() should match a copy by code")
	}
	if errors.Is(err, ErrNoDevice) {
		t.Error("errors.Is() should not match a different code")
	}
}

func TestExecutionError_ErrorsIsThroughWrap(t *testing.T) {
	err := fmt.Errorf("select device: %w", ErrNoDevice.WithMessage("no device matching serial"))

	if !errors.Is(err, ErrNoDevice) {
		t.Error("errors.Is() should see ErrNoDevice through fmt wrapping")
	}
}
