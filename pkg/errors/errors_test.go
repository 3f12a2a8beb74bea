package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidColorMode, "unknown color mode: %s", "rainbow")

	if err.Code != ErrCodeInvalidColorMode {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidColorMode)
	}

	if err.Message != "unknown color mode: rainbow" {
		t.Errorf("Message = %v, want %v", err.Message, "unknown color mode: rainbow")
	}

	expected := "INVALID_COLOR_MODE: unknown color mode: rainbow"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "redis get")

	if err.Code != ErrCodeNetwork {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNetwork)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeInvalidHierarchy, "no root"), ErrCodeInvalidHierarchy, true},
		{"non-matching code", New(ErrCodeInvalidHierarchy, "no root"), ErrCodeNetwork, false},
		{"wrapped error", Wrap(ErrCodeNetwork, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeNetwork, true},
		{"fmt wrapped", fmt.Errorf("load: %w", New(ErrCodeFileNotFound, "x")), ErrCodeFileNotFound, true},
		{"non-Error type", errors.New("plain error"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeInvalidPalette, "test"), ErrCodeInvalidPalette},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidInput, "friendly message")); got != "friendly message" {
		t.Errorf("UserMessage() = %v, want %v", got, "friendly message")
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage() = %v, want %v", got, "plain error")
	}
}

func TestClassifiers(t *testing.T) {
	if !IsNotFound(New(ErrCodeGraphNotFound, "graph %s", "abc")) {
		t.Error("IsNotFound(GRAPH_NOT_FOUND) = false, want true")
	}
	if IsNotFound(New(ErrCodeInternal, "boom")) {
		t.Error("IsNotFound(INTERNAL_ERROR) = true, want false")
	}
	if !IsValidation(New(ErrCodeInvalidHierarchy, "no root item found")) {
		t.Error("IsValidation(INVALID_HIERARCHY) = false, want true")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("IsValidation(plain) = true, want false")
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidFormat,
		ErrCodeInvalidColorMode,
		ErrCodeInvalidPalette,
		ErrCodeInvalidHierarchy,
		ErrCodeInvalidID,
		ErrCodeInvalidPath,
		ErrCodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeGraphNotFound,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
