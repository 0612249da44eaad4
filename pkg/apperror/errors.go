package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an application error. Callers switch on it to decide
// which corrective action to show, so kinds must never be merged.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindTransactionFailed Kind = "TRANSACTION_FAILED"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	KindNotFound:          http.StatusNotFound,
	KindInvalidArgument:   http.StatusBadRequest,
	KindInsufficientStock: http.StatusBadRequest,
	KindTransactionFailed: http.StatusInternalServerError,
	KindUnauthorized:      http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindConflict:          http.StatusConflict,
	KindInternal:          http.StatusInternalServerError,
}

// AppError represents an application error with HTTP status code
type AppError struct {
	Kind    Kind   `json:"code"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match on kind, e.g. errors.Is(err, apperror.ErrNotFound).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound          = &AppError{Kind: KindNotFound}
	ErrInvalidArgument   = &AppError{Kind: KindInvalidArgument}
	ErrInsufficientStock = &AppError{Kind: KindInsufficientStock}
	ErrTransactionFailed = &AppError{Kind: KindTransactionFailed}
	ErrUnauthorized      = &AppError{Kind: KindUnauthorized}
	ErrForbidden         = &AppError{Kind: KindForbidden}
	ErrConflict          = &AppError{Kind: KindConflict}
)

// New creates an AppError of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Code: statusByKind[kind], Message: message}
}

// NewNotFound creates a not found error naming the missing resource.
func NewNotFound(resource string) *AppError {
	return New(KindNotFound, resource+" not found")
}

func NewInvalidArgument(format string, args ...any) *AppError {
	return New(KindInvalidArgument, fmt.Sprintf(format, args...))
}

// NewInsufficientStock names the product whose stock would go negative.
func NewInsufficientStock(productName string, available, requested int) *AppError {
	return New(KindInsufficientStock,
		fmt.Sprintf("insufficient stock for product '%s': available %d, requested %d", productName, available, requested))
}

// NewTransactionFailure hides the infrastructure cause behind a generic
// message while keeping it reachable through errors.Unwrap.
func NewTransactionFailure(cause error) *AppError {
	e := New(KindTransactionFailed, "transaction failed")
	e.cause = cause
	return e
}

func NewConflict(message string) *AppError {
	return New(KindConflict, message)
}

func NewUnauthorized(message string) *AppError {
	return New(KindUnauthorized, message)
}

func NewForbidden(message string) *AppError {
	return New(KindForbidden, message)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	e := New(KindInternal, "internal server error")
	e.cause = err
	return e
}

// FromTx classifies an error that escaped a unit of work. Application errors
// pass through untouched, everything else is a transaction failure.
func FromTx(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewTransactionFailure(err)
}

// IsRetryable reports whether a transaction failure came from a conflict
// the database resolved by aborting us (serialization failure, deadlock,
// lock timeout). Nothing in the core retries; callers decide. A unit of
// work that ran out of time is not retryable.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}
