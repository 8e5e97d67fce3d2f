// Package errs defines the typed failures returned by the economy engine.
//
// Every error the pure logic can produce carries a Kind. Callers match on the
// kind with errors.Is against the sentinel values below, or read it with
// KindOf, and never need to inspect message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind string

const (
	KindInternal               Kind = "internal"
	KindInvalidAmount          Kind = "invalid_amount"
	KindNotFound               Kind = "not_found"
	KindAlreadyExists          Kind = "already_exists"
	KindRange                  Kind = "range_error"
	KindEmptyInput             Kind = "empty_input"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindUnknownCommand         Kind = "unknown_command"
	KindLockTimeout            Kind = "lock_timeout"
	KindInvalidPayload         Kind = "invalid_payload"
)

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrInvalidAmount          = &Error{Kind: KindInvalidAmount}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrAlreadyExists          = &Error{Kind: KindAlreadyExists}
	ErrRange                  = &Error{Kind: KindRange}
	ErrEmptyInput             = &Error{Kind: KindEmptyInput}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrUnknownCommand         = &Error{Kind: KindUnknownCommand}
	ErrLockTimeout            = &Error{Kind: KindLockTimeout}
	ErrInvalidPayload         = &Error{Kind: KindInvalidPayload}
)

// Error is a kinded engine failure.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "pool.Withdraw"
	Msg  string
	Err  error // optional cause
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so wrapped errors match the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// E builds a kinded error with a formatted message.
func E(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether a caller may retry the same request unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindLockTimeout
}

// IsValidation reports whether the failure was caused by the request itself.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindInvalidAmount, KindRange, KindEmptyInput, KindInvalidStateTransition,
		KindAlreadyExists, KindUnknownCommand, KindInvalidPayload:
		return true
	default:
		return false
	}
}
