// Package snipeerr defines the tagged error taxonomy shared across the
// pipeline: validation, policy, transient, circuit and structural failures.
// Components return these instead of panicking across package boundaries.
package snipeerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and user-visibility decisions.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindPolicy     Kind = "POLICY"
	KindTransient  Kind = "TRANSIENT"
	KindCircuit    Kind = "CIRCUIT"
	KindStructural Kind = "STRUCTURAL"
)

// Error is a tagged error value carrying a stable marker and optional
// underlying cause. Policy and structural errors are never retried.
type Error struct {
	Kind    Kind
	Marker  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the pipeline should retry the call that
// produced this error.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

func New(kind Kind, marker, message string) *Error {
	return &Error{Kind: kind, Marker: marker, Message: message}
}

func Wrap(kind Kind, marker, message string, cause error) *Error {
	return &Error{Kind: kind, Marker: marker, Message: message, Cause: cause}
}

// Sentinel markers referenced directly by spec.md §4.7/§7.
var (
	ErrFilterRejected      = New(KindPolicy, "FILTER_REJECTED", "token failed filter policy")
	ErrNoRoute             = New(KindPolicy, "NO_ROUTE", "aggregator returned no route")
	ErrInsufficientBalance = New(KindPolicy, "INSUFFICIENT_BALANCE", "wallet balance insufficient for trade")
	ErrExposureBlocked     = New(KindPolicy, "EXPOSURE_BLOCKED", "user concurrency cap reached or mint in post-exit cooldown")
	ErrQuoteFailed         = New(KindTransient, "QUOTE_FAILED", "quote request failed")
	ErrNetworkError        = New(KindTransient, "NETWORK_ERROR", "network error")
	ErrTransactionTimeout  = New(KindTransient, "TRANSACTION_TIMEOUT", "transaction confirmation timed out")
	ErrMaxRetriesExceeded  = New(KindTransient, "MAX_RETRIES_EXCEEDED", "retries exhausted")
	ErrCircuitOpen         = New(KindCircuit, "CIRCUIT_OPEN", "circuit breaker is open")
	ErrUnknown             = New(KindStructural, "UNKNOWN", "unexpected internal error")
)

// Is reports whether err (or anything it wraps) carries the given marker.
func Is(err error, marker string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Marker == marker
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to KindStructural when err is
// not a tagged *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStructural
}
