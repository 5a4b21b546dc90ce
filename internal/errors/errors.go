// Package errors provides the coded error taxonomy used across the renderer.
//
// Usage:
//
//	// In loaders and processors - return typed errors
//	if os.IsNotExist(err) {
//	    return errors.Filef("audio file not found: %s", path)
//	}
//
//	// At the edge - classify with errors.Is
//	if errors.Is(err, errors.ErrFile) {
//	    os.Exit(errors.CodeFile.ExitCode())
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error classification.
type Code string

// Error codes used throughout the renderer.
const (
	CodeFile            Code = "FILE"
	CodeTimeline        Code = "TIMELINE"
	CodeAudioProcessing Code = "AUDIO_PROCESSING"
	CodeDSP             Code = "DSP"
	CodeValidation      Code = "VALIDATION"
)

// ExitCode returns the process exit status for an error code.
func (c Code) ExitCode() int {
	switch c {
	case CodeFile:
		return 2
	case CodeTimeline, CodeValidation:
		return 3
	default:
		return 1
	}
}

// Error is a classified error with a code, message, and optional cause.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// Sentinel errors for use with errors.Is().
var (
	ErrFile            = &Error{Code: CodeFile, Message: "file error"}
	ErrTimeline        = &Error{Code: CodeTimeline, Message: "timeline error"}
	ErrAudioProcessing = &Error{Code: CodeAudioProcessing, Message: "audio processing error"}
	ErrDSP             = &Error{Code: CodeDSP, Message: "dsp error"}
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation error"}
)

// Filef creates a file error: a missing or unreadable source or timeline.
func Filef(format string, args ...any) *Error {
	return &Error{Code: CodeFile, Message: fmt.Sprintf(format, args...)}
}

// Timelinef creates a structural timeline error.
func Timelinef(format string, args ...any) *Error {
	return &Error{Code: CodeTimeline, Message: fmt.Sprintf(format, args...)}
}

// AudioProcessingf creates an error for a stage that produced an invalid buffer.
func AudioProcessingf(format string, args ...any) *Error {
	return &Error{Code: CodeAudioProcessing, Message: fmt.Sprintf(format, args...)}
}

// DSPf creates an error for a required effect that could not be applied.
func DSPf(format string, args ...any) *Error {
	return &Error{Code: CodeDSP, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error carrying per-field messages.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// ExitCode returns the exit status for err, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := CodeOf(err); ok {
		return code.ExitCode()
	}
	return 1
}
