// Package apperror defines the error kinds that cross the service boundary.
//
// Services never leak raw transport, JSON or SQL errors to their callers.
// Every failure is converted to an *AppError whose Err is one of the sentinels
// below and whose Message is safe to show to the student.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrRemoteFetch        = errors.New("remote fetch failed")
	ErrProfileFetch       = errors.New("profile fetch failed")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage error")
	ErrValidation         = errors.New("Validation Error")
)

type AppError struct {
	Err     error  // kind sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is matches the kind and errors.As can still reach e.g. a context error.
func (e *AppError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.cause}
}

// Cause returns the wrapped low-level error, if any.
func (e *AppError) Cause() error {
	return e.cause
}

func InvalidCredentials(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: message,
	}
}

func NotAuthenticated() *AppError {
	return &AppError{
		Err:     ErrNotAuthenticated,
		Message: "not signed in, please log in again",
	}
}

// RemoteFetchFailed reports a transport or server fault while loading what.
func RemoteFetchFailed(what string, cause error) *AppError {
	return &AppError{
		Err:     ErrRemoteFetch,
		Message: fmt.Sprintf("could not load %s", what),
		cause:   cause,
	}
}

// Unreachable reports that the platform could not be contacted at all.
func Unreachable(cause error) *AppError {
	return &AppError{
		Err:     ErrRemoteFetch,
		Message: "could not reach the e-learning server, check your connection",
		cause:   cause,
	}
}

func ProfileFetchFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrProfileFetch,
		Message: "signed in, but the user profile could not be loaded",
		cause:   cause,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("local storage failure while %s", op),
		cause:   cause,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}
