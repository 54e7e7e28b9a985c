package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeEmptyQuery, "query is empty")
	if got := err.Error(); got != "EMPTY_QUERY: query is empty" {
		t.Errorf("unexpected error string: %q", got)
	}

	wrapped := Wrap(CodeStorageError, "segment write failed", errors.New("disk full"))
	if !strings.Contains(wrapped.Error(), "disk full") {
		t.Errorf("wrapped error should contain cause: %q", wrapped.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(CodeInternal, "something failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeEmptyQuery, http.StatusBadRequest},
		{CodeDimensionMismatch, http.StatusBadRequest},
		{CodeEmptyIndex, http.StatusNotFound},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeStorageError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := New(tt.code, "x").HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := ValidationError("bad k").WithDetail("k", "-1")
	if err.Details["k"] != "-1" {
		t.Errorf("expected detail k=-1, got %v", err.Details)
	}
}

func TestIsCode(t *testing.T) {
	if !IsCode(EmptyIndexError(), CodeEmptyIndex) {
		t.Error("IsCode should match EMPTY_INDEX")
	}
	if IsCode(errors.New("plain"), CodeEmptyIndex) {
		t.Error("IsCode should not match plain errors")
	}
}

func TestDimensionMismatchError(t *testing.T) {
	err := DimensionMismatchError(128, 64)
	if !strings.Contains(err.Message, "128") || !strings.Contains(err.Message, "64") {
		t.Errorf("message should report both dimensions: %q", err.Message)
	}
}
