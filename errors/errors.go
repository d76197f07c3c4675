// Package errors provides error handling for forma.
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
//	if errors.Is(err, errors.ErrMissingResolveMap) {
//	    // handle missing resolve map
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
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Assertions and panics
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the generation orchestration layer.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrInvalidGenerator indicates the generator was constructed from
	// malformed initial shapes and cannot run
	ErrInvalidGenerator = New("invalid generator instance")

	// ErrAttributeCount indicates the number of shape attribute sets does
	// not cover the number of initial shapes
	ErrAttributeCount = New("not enough shape attribute sets")

	// ErrMissingResolveMap indicates generation with defaults was requested
	// before any rule package had been resolved
	ErrMissingResolveMap = New("no resolve map available")

	// ErrResolveFailed indicates a rule package could not be resolved
	ErrResolveFailed = New("rule package resolution failed")

	// ErrNoEncoder indicates generation was requested without an encoder
	// name before any encoder set had been built
	ErrNoEncoder = New("no encoder configured")

	// ErrBadOutputPath indicates the output directory for a file-based
	// encoder is missing or not a directory
	ErrBadOutputPath = New("invalid output path")

	// ErrEngineNotInitialized indicates the engine runtime has not been
	// initialized yet
	ErrEngineNotInitialized = New("engine not initialized")
)

// IsRequestError reports whether err belongs to the request-validation
// family: errors that terminate a single generate call without
// invalidating the generator instance.
func IsRequestError(err error) bool {
	return err != nil && IsAny(err,
		ErrAttributeCount, ErrMissingResolveMap, ErrResolveFailed,
		ErrNoEncoder, ErrBadOutputPath)
}
