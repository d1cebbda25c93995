package model

import (
	"errors"
	"fmt"
)

// Error is the typed error returned by rule loading, snapshot validation
// and persistence.
//
// Error categories:
//   - Config parse: a rules source exists but is not a well-formed rule set
//   - Missing field: an analysis snapshot lacks a required key
//   - IO: a read or write against the filesystem failed
//   - Reserved id: a rule uses the id reserved for the statistical override
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the file involved, if any.
	Path string

	// Field is the dotted key involved, if any.
	Field string

	// Line is the 1-based line in Path, when known.
	Line int

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeConfigParse indicates a rules source that exists but fails to parse or validate.
	ErrCodeConfigParse ErrorCode = "CONFIG_PARSE"

	// ErrCodeMissingField indicates a required key is absent.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeIO indicates a filesystem failure.
	ErrCodeIO ErrorCode = "IO"

	// ErrCodeReservedID indicates a rule uses the override's reserved id.
	ErrCodeReservedID ErrorCode = "RESERVED_ID"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Path != "" && e.Line > 0:
		msg = fmt.Sprintf("%s (%s:%d)", msg, e.Path, e.Line)
	case e.Path != "":
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s [field=%s]", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigParseError creates an Error for a malformed rules source.
func NewConfigParseError(path string, line int, message string, err error) *Error {
	return &Error{
		Code:    ErrCodeConfigParse,
		Message: message,
		Path:    path,
		Line:    line,
		Err:     err,
	}
}

// NewMissingFieldError creates an Error for an absent required key.
func NewMissingFieldError(field string) *Error {
	return &Error{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("required field %q is missing", field),
		Field:   field,
	}
}

// NewEmptyFieldError creates a missing field Error for a key that is present
// but holds an empty value.
func NewEmptyFieldError(field string) *Error {
	return &Error{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("required field %q is empty", field),
		Field:   field,
	}
}

// NewIOError creates an Error for a filesystem failure on path.
func NewIOError(path, op string, err error) *Error {
	return &Error{
		Code:    ErrCodeIO,
		Message: op,
		Path:    path,
		Err:     err,
	}
}

// IsConfigParseError reports whether err is, or wraps, a config parse error.
func IsConfigParseError(err error) bool {
	return hasCode(err, ErrCodeConfigParse)
}

// IsMissingFieldError reports whether err is, or wraps, a missing field error.
func IsMissingFieldError(err error) bool {
	return hasCode(err, ErrCodeMissingField)
}

// IsIOError reports whether err is, or wraps, an IO error.
func IsIOError(err error) bool {
	return hasCode(err, ErrCodeIO)
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
