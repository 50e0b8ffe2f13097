// Package errors provides error handling for sitrack.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotTrackable) {
//	    // handle untrackable type
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// GetStack returns the reportable stack trace attached to an error, if any.
var GetStack = crdb.GetReportableStackTrace

// Common sentinel errors for use across sitrack.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotTrackable indicates a referenced type supports neither a
	// tracking identifier nor a base location
	ErrNotTrackable = New("not a trackable type")

	// ErrNoTargetRecord indicates a check-in target could not be resolved
	// to a concrete record
	ErrNoTargetRecord = New("no target record")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")
)

// IsNotTrackableError checks if an error is or wraps ErrNotTrackable
func IsNotTrackableError(err error) bool {
	return err != nil && Is(err, ErrNotTrackable)
}

// IsNoTargetRecordError checks if an error is or wraps ErrNoTargetRecord
func IsNoTargetRecordError(err error) bool {
	return err != nil && Is(err, ErrNoTargetRecord)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewNotTrackableError creates a not-trackable error with a formatted message
func NewNotTrackableError(format string, args ...interface{}) error {
	return Wrap(ErrNotTrackable, Newf(format, args...).Error())
}

// NewNoTargetRecordError creates a no-target-record error with a formatted message
func NewNoTargetRecordError(format string, args ...interface{}) error {
	return Wrap(ErrNoTargetRecord, Newf(format, args...).Error())
}
