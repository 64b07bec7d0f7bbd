package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so handlers can map it to an HTTP status.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindConfiguration
	KindUpstream
	KindAuthentication
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	case KindAuthentication:
		return "authentication"
	default:
		return "unexpected"
	}
}

// Error is the structured error surfaced by the intake handlers. Message is
// safe to show to the caller; Details carries provider diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports bad or missing client input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Configuration reports a required server-side secret or mapping that is absent.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Upstream reports a rejected or unreachable provider call.
func Upstream(message, details string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Details: details, Err: err}
}

// Authentication reports a missing or invalid webhook signature.
func Authentication(message string, err error) *Error {
	e := &Error{Kind: KindAuthentication, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// Unexpected wraps anything that was not classified.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: "internal error", Err: err}
}

// KindOf returns the Kind of err, or KindUnexpected when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}

// As converts err into an *Error, wrapping unclassified errors as unexpected.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected(err)
}
