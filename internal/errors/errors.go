// Package errors provides the typed application errors of the ledger.
// Every service-layer failure is an AppError carrying a Kind; the HTTP layer
// maps the kind to a status code and never leaks the internal cause.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Kind classifies an AppError.
type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindConflict           Kind = "CONFLICT"
	KindInvariantViolation Kind = "INVARIANT_VIOLATION"
	KindInsufficientFunds  Kind = "INSUFFICIENT_FUNDS"
	KindForbiddenOperation Kind = "FORBIDDEN_OPERATION"
	KindInternal           Kind = "INTERNAL"
)

// StatusFor returns the HTTP status code for a kind.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvariantViolation, KindInsufficientFunds, KindForbiddenOperation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AppError represents a structured application error with an error code,
// human-readable message, kind, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Kind       Kind   `json:"kind"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches AppErrors by code so wrapped copies compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/kind but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Kind:       sentinel.Kind,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Kind:       sentinel.Kind,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// KindOf returns the kind of err, or KindInternal when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func newError(kind Kind, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Kind: kind, StatusCode: StatusFor(kind)}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = newError(KindUnauthorized, "UNAUTHORIZED", "Authentication required")
	ErrInvalidCredentials = newError(KindUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrForbidden          = newError(KindForbidden, "FORBIDDEN", "Access denied")
)

// General errors.
var (
	ErrInvalidInput   = newError(KindValidation, "INVALID_INPUT", "Invalid input")
	ErrNotFound       = newError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrConflict       = newError(KindConflict, "CONFLICT", "Resource state conflict")
	ErrInternalServer = newError(KindInternal, "INTERNAL_ERROR", "An internal error occurred")

	// ErrInvalidPayload is returned when a request body cannot be decoded at all.
	ErrInvalidPayload = &AppError{Code: "INVALID_PAYLOAD", Message: "Request body could not be decoded", Kind: KindValidation, StatusCode: http.StatusUnprocessableEntity}
)

// Ledger rule errors.
var (
	ErrInvariantViolation = newError(KindInvariantViolation, "INVARIANT_VIOLATION", "Operation would break a ledger invariant")
	ErrInactiveAccount    = newError(KindInvariantViolation, "ACCOUNT_INACTIVE", "Account is inactive")
	ErrInsufficientFunds  = newError(KindInsufficientFunds, "INSUFFICIENT_FUNDS", "Insufficient funds in source account")
	ErrForbiddenOperation = newError(KindForbiddenOperation, "FORBIDDEN_OPERATION", "Operation is not allowed")
	ErrTransferLeg        = newError(KindForbiddenOperation, "TRANSFER_LEG", "Transfer legs are managed by the transfer service")
	ErrBillLinked         = newError(KindForbiddenOperation, "BILL_LINKED", "Transaction pays a bill and must stay completed")
)

// User errors.
var (
	ErrUserNotFound   = newError(KindNotFound, "USER_NOT_FOUND", "User not found")
	ErrDuplicateEmail = newError(KindConflict, "DUPLICATE_EMAIL", "A user with this email already exists")
	ErrPasswordLength = newError(KindValidation, "PASSWORD_TOO_LONG", "Password exceeds the maximum length")
)

// Account errors.
var (
	ErrAccountNotFound  = newError(KindNotFound, "ACCOUNT_NOT_FOUND", "Account not found")
	ErrCurrencyMismatch = newError(KindValidation, "CURRENCY_MISMATCH", "Accounts must share a currency")
	ErrSameAccount      = newError(KindValidation, "SAME_ACCOUNT_TRANSFER", "Cannot transfer to the same account")
)

// Category errors.
var (
	ErrCategoryNotFound    = newError(KindNotFound, "CATEGORY_NOT_FOUND", "Category not found")
	ErrCategoryHasChildren = newError(KindConflict, "CATEGORY_HAS_CHILDREN", "Category has child categories")
	ErrSelfParentCategory  = newError(KindValidation, "SELF_PARENT_CATEGORY", "A category cannot be its own parent")
	ErrCategoryCycle       = newError(KindValidation, "CATEGORY_CYCLE", "Category parent chain would form a cycle")
)

// Transaction errors.
var (
	ErrTransactionNotFound = newError(KindNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found")
	ErrTransferNotFound    = newError(KindNotFound, "TRANSFER_NOT_FOUND", "Transfer not found")
	ErrTransferNotPending  = newError(KindConflict, "TRANSFER_NOT_DELETABLE", "Only pending or cancelled transfers can be deleted")
)

// Bill errors.
var (
	ErrBillNotFound  = newError(KindNotFound, "BILL_NOT_FOUND", "Bill not found")
	ErrAlreadyPaid   = newError(KindConflict, "ALREADY_PAID", "Bill is already paid")
	ErrBillNotPaid   = newError(KindConflict, "BILL_NOT_PAID", "Bill is not paid")
	ErrBillCancelled = newError(KindConflict, "BILL_CANCELLED", "Bill is cancelled")
)

// Scheduled transaction errors.
var (
	ErrScheduledNotFound = newError(KindNotFound, "SCHEDULED_NOT_FOUND", "Scheduled transaction not found")
	ErrScheduledInactive = newError(KindConflict, "SCHEDULED_NOT_ACTIVE", "Scheduled transaction is not active")
)

// Goal errors.
var (
	ErrGoalNotFound         = newError(KindNotFound, "GOAL_NOT_FOUND", "Goal not found")
	ErrContributionNotFound = newError(KindNotFound, "CONTRIBUTION_NOT_FOUND", "Contribution not found")
	ErrAllocationExceeded   = newError(KindValidation, "ALLOCATION_EXCEEDED", "Auto-contribution percentages for a savings category exceed 100")
	ErrGoalNotActive        = newError(KindConflict, "GOAL_NOT_ACTIVE", "Goal is not active")
)

// Sharing errors.
var (
	ErrWorkspaceNotFound = newError(KindNotFound, "WORKSPACE_NOT_FOUND", "Workspace not found")
	ErrFamilyNotFound    = newError(KindNotFound, "FAMILY_NOT_FOUND", "Family not found")
	ErrMemberNotFound    = newError(KindNotFound, "MEMBER_NOT_FOUND", "Member not found")
	ErrAlreadyMember     = newError(KindConflict, "ALREADY_MEMBER", "User is already a member")
)
