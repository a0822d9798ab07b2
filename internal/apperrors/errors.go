// Package apperrors defines the error kinds surfaced by the shop workflows.
// Business-rule violations are synchronous and non-retryable; a gateway
// error means the charge outcome is unknown, not that it failed.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	NotFound          Kind = "not_found"
	Forbidden         Kind = "forbidden"
	InsufficientStock Kind = "insufficient_stock"
	EmptyCart         Kind = "empty_cart"
	AlreadyPaid       Kind = "already_paid"
	Unavailable       Kind = "unavailable"
	GatewayError      Kind = "payment_gateway_error"
	Validation        Kind = "validation_error"
)

// Error is a structured application error: a kind plus a human-readable
// message. Raw gateway payloads and stack traces never travel in Message.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches two application errors by kind, so callers can write
// errors.Is(err, apperrors.E(apperrors.NotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// E builds an application error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef builds an application error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an application error that preserves an underlying cause for
// errors.Is/As chains while keeping Message presentable.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// KindOf extracts the kind from err, or "" if err is not an application
// error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
