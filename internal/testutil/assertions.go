package testutil

import (
	"errors"
	"testing"

	apperrors "famledger/internal/errors"
	"famledger/internal/money"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertKind checks that err is an *AppError of the given kind.
func AssertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error of kind %s, got nil", kind)
	}
	if got := apperrors.KindOf(err); got != kind {
		t.Errorf("expected kind %s, got %s (%v)", kind, got, err)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertMoney fails the test if got does not equal the amount in want.
func AssertMoney(t *testing.T, got money.Money, want string) {
	t.Helper()

	if !got.Equal(money.MustParse(want)) {
		t.Errorf("expected %s, got %s", want, got)
	}
}
