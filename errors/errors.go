// Package errors provides error handling for phase.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Details and hints attached to errors without changing their message
//
// Usage:
//
//	// Classify a failure with one of the taxonomy sentinels
//	return errors.Wrapf(errors.ErrUnsupportedConstruct, "yield statement in %s", backend)
//
//	// Check the class later, through any number of wraps
//	if errors.Is(err, errors.ErrUnsupportedConstruct) {
//	    // fail the unit, keep going with the next one
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
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions
var (
	AssertionFailedf                 = crdb.AssertionFailedf
	NewAssertionErrorWithWrappedErrf = crdb.NewAssertionErrorWithWrappedErrf
	IsAssertionFailure               = crdb.IsAssertionFailure
)

// Failure classes of the generation engine.
// Wrap these with errors.Wrapf to add context while preserving the class.
var (
	// ErrUnsupportedConstruct indicates a node kind with no valid representation in the
	// target backend. Fatal for the containing unit.
	ErrUnsupportedConstruct = New("unsupported construct")

	// ErrTemplateBinding indicates a template variable without a bound value at render time.
	ErrTemplateBinding = New("template binding")

	// ErrUnresolvedSymbol indicates the semantic oracle had no symbol for a node the
	// dispatcher expected to resolve. Non-fatal: the unit is emitted with a fallback.
	ErrUnresolvedSymbol = New("unresolved symbol")

	// ErrInvocationBinding indicates a required parameter with neither an argument nor a
	// resolvable default.
	ErrInvocationBinding = New("invocation binding")
)

// IsUnsupported checks if an error is or wraps ErrUnsupportedConstruct
func IsUnsupported(err error) bool {
	return err != nil && Is(err, ErrUnsupportedConstruct)
}

// IsFatal reports whether err must fail the unit it occurred in.
// Unresolved symbols are the only non-fatal class.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !Is(err, ErrUnresolvedSymbol)
}
