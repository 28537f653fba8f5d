// Package apperrors defines the coded error vocabulary of the dashboard
// service. Every error that crosses a package boundary carries a Code (what
// went wrong) and, where known, a Stage (which phase of the feed pipeline
// produced it).
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for HTTP status mapping.
type Code string

const (
	CodeValidation     Code = "validation"
	CodeQueryExecution Code = "query_execution"
	CodeTimeout        Code = "timeout"
	CodeNotFound       Code = "not_found"
	CodeInternal       Code = "internal"
)

// Stage identifies the feed pipeline phase an error originated from.
type Stage string

const (
	StageFilterCompile   Stage = "filter-compile"
	StageUnionBuild      Stage = "union-build"
	StageClassify        Stage = "classify"
	StagePaginate        Stage = "paginate"
	StageProject         Stage = "project"
	StageSnapshotRefresh Stage = "snapshot-refresh"
)

// Error is the concrete error type used throughout the service.
type Error struct {
	Code    Code
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Stage != "":
		return fmt.Sprintf("%s [%s/%s]: %v", e.Message, e.Code, e.Stage, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s [%s]: %v", e.Message, e.Code, e.Err)
	case e.Stage != "":
		return fmt.Sprintf("%s [%s/%s]", e.Message, e.Code, e.Stage)
	default:
		return fmt.Sprintf("%s [%s]", e.Message, e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. Returns nil when err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// InvalidInput creates a validation error for a named request field.
func InvalidInput(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf("%s: %s", field, message)}
}

// At stamps the pipeline stage onto err when it is (or wraps) an *Error.
// Errors of other types are wrapped as internal. An already-stamped error
// keeps its original stage.
func At(err error, stage Stage) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Stage == "" {
			e.Stage = stage
		}
		return err
	}
	return &Error{Code: CodeInternal, Stage: stage, Message: "unexpected error", Err: err}
}

// CodeOf extracts the code from err, defaulting to internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// StageOf extracts the pipeline stage from err, or "" when untagged.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsTimeout reports whether err is a deadline-exceeded error.
func IsTimeout(err error) bool { return CodeOf(err) == CodeTimeout }

// IsQueryExecution reports whether err is a storage execution failure.
func IsQueryExecution(err error) bool { return CodeOf(err) == CodeQueryExecution }

// HTTPStatus maps an error code to the HTTP status the handler should emit.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeQueryExecution:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
