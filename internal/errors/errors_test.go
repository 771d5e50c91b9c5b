package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInvariantViolation, http.StatusConflict},
		{KindInsufficientFunds, http.StatusConflict},
		{KindForbiddenOperation, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
		{Kind("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := StatusFor(tt.kind); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("row locked")
	err := Wrap(ErrAlreadyPaid, cause)

	if err.Code != "ALREADY_PAID" || err.Kind != KindConflict || err.StatusCode != http.StatusConflict {
		t.Errorf("unexpected wrapped error %+v", err)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected wrapped error to unwrap to its cause")
	}
	if !stderrors.Is(err, ErrAlreadyPaid) {
		t.Error("expected wrapped error to match its sentinel")
	}
	if stderrors.Is(err, ErrBillNotFound) {
		t.Error("expected wrapped error not to match another sentinel")
	}
}

func TestWithMessage(t *testing.T) {
	err := WithMessage(ErrInvalidInput, "amount must be positive")
	if err.Message != "amount must be positive" || err.Code != ErrInvalidInput.Code {
		t.Errorf("unexpected error %+v", err)
	}
	if ErrInvalidInput.Message != "Invalid input" {
		t.Error("sentinel must not be mutated")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(fmt.Errorf("context: %w", ErrInsufficientFunds)) != KindInsufficientFunds {
		t.Error("expected kind to be found through wrapping")
	}
	if KindOf(fmt.Errorf("boom")) != KindInternal {
		t.Error("expected plain errors to be internal")
	}
	if ErrInvalidPayload.StatusCode != http.StatusUnprocessableEntity || ErrInvalidPayload.Kind != KindValidation {
		t.Error("undecodable payloads map to 422 validation errors")
	}
}
