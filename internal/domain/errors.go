package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the caller-facing category of a ledger failure.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindConflict            ErrorKind = "CONFLICT"
	KindUnauthorized        ErrorKind = "UNAUTHORIZED"
	KindForbidden           ErrorKind = "FORBIDDEN"
	KindInsufficientBalance ErrorKind = "INSUFFICIENT_BALANCE"
	KindIntegrity           ErrorKind = "INTEGRITY"
)

// Error carries a kind, a message that is safe to show to callers, and an optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and message so sentinels survive wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) *Error { return NewError(KindValidation, msg) }

func Validationf(format string, args ...interface{}) *Error {
	return NewError(KindValidation, fmt.Sprintf(format, args...))
}

// Integrity wraps a storage failure inside a unit of work. Nothing was committed.
func Integrity(err error) *Error {
	return &Error{Kind: KindIntegrity, Message: "operation could not be committed, please retry", Err: err}
}

// KindOf returns the kind of err, or KindIntegrity for errors that carry none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindIntegrity
}

var (
	ErrSelfConnection      = NewError(KindValidation, "cannot connect to yourself")
	ErrInvalidConnection   = NewError(KindValidation, "invalid connection type")
	ErrInvalidAmount       = NewError(KindValidation, "amount must be a positive integer")
	ErrInvalidReason       = NewError(KindValidation, "invalid transaction reason")
	ErrBelowMinimum        = NewError(KindValidation, "points to swap are below the minimum")
	ErrAwardTooLarge       = NewError(KindValidation, "award exceeds the maximum allowed")
	ErrInvalidWallet       = NewError(KindValidation, "invalid wallet address")
	ErrInvalidScanPayload  = NewError(KindValidation, "unrecognised QR payload")
	ErrUserNotFound        = NewError(KindNotFound, "user not found")
	ErrDuplicateConnection = NewError(KindConflict, "connection already exists")
	ErrDailyBonusClaimed   = NewError(KindConflict, "daily bonus already claimed")
	ErrEmailExists         = NewError(KindConflict, "email already registered")
	ErrUsernameExists      = NewError(KindConflict, "username already taken")
	ErrWalletExists        = NewError(KindConflict, "wallet address already registered")
	ErrUnauthorized        = NewError(KindUnauthorized, "caller is not allowed to act for this user")
	ErrInvalidCreds        = NewError(KindUnauthorized, "invalid email or password")
	ErrInvalidNonce        = NewError(KindUnauthorized, "invalid or expired nonce")
	ErrInvalidSignature    = NewError(KindUnauthorized, "invalid signature")
	ErrInsufficientPoints  = NewError(KindInsufficientBalance, "insufficient points")
)
