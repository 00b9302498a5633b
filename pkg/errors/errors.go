// Package errors provides the unified error type and factory functions used by
// every layer of the scholar ingest pipeline. AppError is the single carrier for
// structured error information so that the CLI, logs and lifecycle events agree
// on how a failure is classified.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the structured error type used across the pipeline. It supports
// errors.Is / errors.As / errors.Unwrap through Unwrap.
//
// Usage:
//
//	return errors.New(errors.ErrCodeMalformedRecord, "paper identifier is empty")
//	return errors.Wrap(err, errors.ErrCodeBatchCommitFailed, "commit failed").
//	           WithDetail("batch 7/20")
type AppError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description.
	Message string

	// Detail carries supplementary context such as a batch index or row number.
	Detail string

	// Cause is the underlying error.
	Cause error

	// Stack is the call stack captured at creation. Not part of Error().
	Stack string
}

// Error implements the error interface.
// Format: "[<code>] <message>: <detail>: <cause>", empty segments omitted.
func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code.String(), e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps err. A nil err yields nil.
//
// When err is already an *AppError and code is CodeUnknown the original code is
// preserved.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	ae := Wrap(err, code, fmt.Sprintf(format, args...))
	ae.Stack = captureStack(1)
	return ae
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's chain.
// A nil err yields CodeOK and an error without an AppError yields CodeUnknown.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factories
// ─────────────────────────────────────────────────────────────────────────────

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// MalformedRecord constructs an ErrCodeMalformedRecord AppError.
func MalformedRecord(message string) *AppError {
	return &AppError{Code: ErrCodeMalformedRecord, Message: message, Stack: captureStack(1)}
}

// Transient wraps err as a retryable store failure.
func Transient(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: ErrCodeTransientStore, Message: message, Cause: err, Stack: captureStack(1)}
}

// IsTransient reports whether err's chain carries ErrCodeTransientStore.
func IsTransient(err error) bool {
	return IsCode(err, ErrCodeTransientStore)
}

//Personal.AI order the ending
