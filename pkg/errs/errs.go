// Package errs provides structured error types for gcbmanimation.
//
// Error codes follow a small closed taxonomy:
//   - DISCOVERY_EMPTY: a file pattern matched no spatial output
//   - RASTER_IO: a raster file is missing, corrupt, or a crop window
//     falls entirely outside the source raster
//   - ALIGNMENT: two layer collections cannot be combined (a year exists
//     on one side only) or a bounding box raster is entirely nodata
//   - INVALID_CONFIG: the animation config file is malformed
//   - INTERNAL: unexpected internal failure
//
// No error in this module is recovered internally; every failure
// propagates to the caller of the top-level render operation.
//
// Usage:
//
//	err := errs.New(errs.RasterIO, "open %s", path)
//	if errs.Is(err, errs.RasterIO) {
//	    // handle raster failure
//	}
package errs

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// DiscoveryEmpty indicates a glob pattern matched no raster files.
	DiscoveryEmpty Code = "DISCOVERY_EMPTY"

	// RasterIO indicates a missing or unreadable raster, or a crop
	// window with no overlap with the source raster.
	RasterIO Code = "RASTER_IO"

	// Alignment indicates that two raster series could not be combined:
	// a year present in only one collection during a blend, or a
	// bounding box computed from an all-nodata reference raster.
	Alignment Code = "ALIGNMENT"

	// InvalidConfig indicates a malformed animation configuration.
	InvalidConfig Code = "INVALID_CONFIG"

	// Internal indicates an unexpected internal error.
	Internal Code = "INTERNAL"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
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

// Is reports whether err carries the given error code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, or "" if it has none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the human-readable message without the code prefix.
// For non-structured errors it returns the error string unchanged.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
