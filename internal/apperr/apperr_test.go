package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Unauthenticated("Invalid credentials"), http.StatusUnauthorized},
		{Forbidden("Insufficient permissions"), http.StatusForbidden},
		{NotFound("User not found"), http.StatusNotFound},
		{Validation("Invalid input data"), http.StatusBadRequest},
		{Conflict("User already exists"), http.StatusBadRequest},
		{NotificationFailed(errors.New("smtp down")), http.StatusInternalServerError},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestClientMessageHidesInternals(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"))
	if got := ClientMessage(err); got != "Internal server error" {
		t.Errorf("ClientMessage() = %q, want generic", got)
	}
	if got := ClientMessage(errors.New("raw")); got != "Internal server error" {
		t.Errorf("ClientMessage(plain) = %q, want generic", got)
	}
	if got := ClientMessage(NotFound("User not found")); got != "User not found" {
		t.Errorf("ClientMessage() = %q, want the taxonomy message", got)
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	base := Conflict("User already exists")
	wrapped := fmt.Errorf("signup: %w", base)

	if !IsKind(wrapped, KindConflict) {
		t.Error("IsKind() lost the kind through wrapping")
	}
	if IsKind(wrapped, KindNotFound) {
		t.Error("IsKind() matched the wrong kind")
	}
	if IsKind(errors.New("plain"), KindConflict) {
		t.Error("IsKind() matched a plain error")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("smtp down")
	err := NotificationFailed(cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is() cannot reach the cause")
	}
}
