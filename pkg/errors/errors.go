// Package errors provides structured error types for stacklicense.
//
// Every failure surfaced by the resolver carries a machine-readable [Code]
// so that callers (the CLI, build tooling, tests) can tell a fatal
// toolchain failure apart from a tolerable cache miss without string
// matching.
//
// # Error Codes
//
//   - EXEC_FAILED: every cargo directive failed
//   - PARSE_FAILED: cargo output could not be decoded
//   - RESOLUTION_FAILED: both cargo queries failed in the same run
//   - INVARIANT_VIOLATION: the resolved package set is inconsistent
//   - CACHE_*: persisted license cache problems
//   - SOURCE_ROOT: the cargo registry source tree is unusable
//   - EMPTY_INPUT / DECODE_FAILED: artifact decoding
//   - INVALID_*: configuration and input validation
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvariant, "root package %q not found", name)
//	if errors.Is(err, errors.ErrCodeInvariant) {
//	    // Handle inconsistent graph
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCacheRead, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Toolchain errors
	ErrCodeExec       Code = "EXEC_FAILED"
	ErrCodeParse      Code = "PARSE_FAILED"
	ErrCodeResolution Code = "RESOLUTION_FAILED"
	ErrCodeInvariant  Code = "INVARIANT_VIOLATION"

	// Cache errors
	ErrCodeCacheUnavailable Code = "CACHE_UNAVAILABLE"
	ErrCodeCacheInvalid     Code = "CACHE_INVALID"
	ErrCodeCacheRead        Code = "CACHE_READ"
	ErrCodeCacheWrite       Code = "CACHE_WRITE"

	// License source errors
	ErrCodeSourceRoot Code = "SOURCE_ROOT"

	// Artifact errors
	ErrCodeEmptyInput Code = "EMPTY_INPUT"
	ErrCodeDecode     Code = "DECODE_FAILED"
	ErrCodeEncode     Code = "ENCODE_FAILED"

	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"

	// Resource errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Join wraps several failures under one code. Nil entries are dropped;
// if nothing remains Join returns nil. The individual failures stay
// reachable through errors.Is and errors.As.
func Join(code Code, msg string, errs ...error) error {
	joined := errors.Join(errs...)
	if joined == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Cause: joined}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
