package model

import (
	"errors"
	"fmt"
)

// Code enumerates the error codes shared with the upstream API surface.
// The set is closed; new failures must map onto one of these.
type Code string

const (
	CodeInvalidPostcode      Code = "INVALID_POSTCODE"
	CodeNoStoresFound        Code = "NO_STORES_FOUND"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodePartialFailure       Code = "PARTIAL_FAILURE"
	CodeAllStoresUnreachable Code = "ALL_STORES_UNREACHABLE"
	CodeGeocodeUnavailable   Code = "GEOCODE_UNAVAILABLE"
	CodeUpstreamError        Code = "UPSTREAM_ERROR"
	CodeTimeout              Code = "TIMEOUT"
)

// Error is a coded domain error. Details is free text safe to return to
// callers; the wrapped cause is not.
type Error struct {
	Code    Code
	Message string
	Details string
	cause   error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a coded error with an optional cause.
func NewError(code Code, message, details string, cause error) *Error {
	return &Error{Code: code, Message: message, Details: details, cause: cause}
}

// CodeOf extracts the code from err, or CodeUpstreamError if err is not a
// coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUpstreamError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}
