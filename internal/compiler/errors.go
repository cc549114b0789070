package compiler

import "github.com/pkg/errors"

// Kind classifies a CompileError so callers (and tests) can branch on the
// failure category without string-matching the message.
type Kind int

const (
	// UnsupportedFeature covers Wasm constructs explicitly out of scope:
	// multi-result, SIMD, reference types, passive segments, multiple
	// memories, non-function composite types, 64-bit memory.
	UnsupportedFeature Kind = iota
	// Malformed covers binary decoding failures.
	Malformed
	// BackendError covers the IR builder rejecting an instruction.
	BackendError
)

func (k Kind) String() string {
	switch k {
	case UnsupportedFeature:
		return "unsupported feature"
	case Malformed:
		return "malformed input"
	case BackendError:
		return "backend error"
	default:
		return "unknown"
	}
}

// CompileError is a non-recoverable, whole-translation-aborting error.
// Internal invariant violations (empty control/stack frame, unknown local
// index) are not modeled here: they panic, per spec.md §7, since they
// signify a compiler bug rather than a property of the input.
type CompileError struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *CompileError) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *CompileError) Unwrap() error { return e.cause }

// Unsupportedf builds an UnsupportedFeature error.
func Unsupportedf(format string, args ...interface{}) error {
	return &CompileError{Kind: UnsupportedFeature, Message: errors.Errorf(format, args...).Error()}
}

// Malformedf builds a Malformed error, wrapping cause for offset/section context.
func Malformedf(cause error, format string, args ...interface{}) error {
	return &CompileError{Kind: Malformed, Message: errors.Errorf(format, args...).Error(), cause: cause}
}

// BackendErrorf builds a BackendError, wrapping the error the IR layer returned.
func BackendErrorf(cause error, format string, args ...interface{}) error {
	return &CompileError{Kind: BackendError, Message: errors.Errorf(format, args...).Error(), cause: cause}
}

// invariantf panics with a labeled message for a condition that must never
// occur on valid input: a compiler bug, not a property of the Wasm module.
func invariantf(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...).Error())
}
