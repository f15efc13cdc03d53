// Package errors defines the coded error taxonomy shared by heap-trace packages.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown         = "UNKNOWN_ERROR"
	CodeMalformedInput  = "MALFORMED_INPUT"
	CodePrecondition    = "PRECONDITION_FAILED"
	CodeMissingEdgeList = "MISSING_EDGE_LIST"
	CodeParseError      = "PARSE_ERROR"
	CodeDownloadError   = "DOWNLOAD_ERROR"
	CodeStorageError    = "STORAGE_ERROR"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeConfigError     = "CONFIG_ERROR"
)

// AppError carries a stable code alongside a message and an optional cause.
// Two AppErrors match under errors.Is when their codes are equal.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Newf creates an AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Common error instances, usable as errors.Is targets.
var (
	ErrMalformedInput  = New(CodeMalformedInput, "malformed input")
	ErrPrecondition    = New(CodePrecondition, "precondition failed")
	ErrMissingEdgeList = New(CodeMissingEdgeList, "node has no edge list")
	ErrParseError      = New(CodeParseError, "parse error")
	ErrDownloadError   = New(CodeDownloadError, "download error")
	ErrStorageError    = New(CodeStorageError, "storage error")
	ErrDatabaseError   = New(CodeDatabaseError, "database error")
	ErrInvalidInput    = New(CodeInvalidInput, "invalid input")
	ErrNotFound        = New(CodeNotFound, "resource not found")
	ErrConfigError     = New(CodeConfigError, "configuration error")
)

// IsMalformedInput reports whether err stems from undecodable snapshot data.
func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

// IsPrecondition reports whether err is a precondition failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// IsMissingEdgeList reports whether err was raised for a node without edges.
func IsMissingEdgeList(err error) bool {
	return errors.Is(err, ErrMissingEdgeList)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
