package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies failures so handlers can pick a status code and a
// localized message without inspecting error strings.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_failed"
	KindRateLimited      ErrorKind = "rate_limited"
	KindContentBlocked   ErrorKind = "content_blocked"
	KindReviewRequired   ErrorKind = "review_required"
	KindNotFound         ErrorKind = "not_found"
	KindAlreadyResolved  ErrorKind = "already_resolved"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindStoreUnavailable ErrorKind = "store_unavailable"
)

// Error is a categorized failure. Message is a locale message key or a
// human readable English fallback; Err carries the underlying cause.
type Error struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
	Args       []interface{}
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, ErrNotFound) works
// for any not-found error.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == "" && other.Err == nil
}

// Kind sentinels for errors.Is checks.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrRateLimited      = &Error{Kind: KindRateLimited}
	ErrContentBlocked   = &Error{Kind: KindContentBlocked}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAlreadyResolved  = &Error{Kind: KindAlreadyResolved}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
)

func newError(kind ErrorKind, message string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: message, Args: args}
}

// storeError wraps a persistence failure. The cause is kept for logs and
// never shown to clients.
func storeError(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: op, Err: err}
}

// KindOf extracts the kind of err. Unknown errors count as store failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindStoreUnavailable
}

// AsError returns the typed error inside err, wrapping unknown errors as
// store failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return storeError("unexpected error", err)
}
