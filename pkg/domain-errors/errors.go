// Package domainerrors defines the error taxonomy shared by services and transports.
//
// Services return *Error values carrying a Code. Transports translate the code into a
// status (see pkg/platform/httputil). Infrastructure layers return sentinel errors from
// pkg/platform/sentinel which services wrap with Wrap.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are stable strings exposed to clients.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvalidRequest     Code = "invalid_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Policy failures. Deterministic, not retryable for the current attempt.
	CodeUnderage       Code = "underage"
	CodeLivenessFailed Code = "liveness_failed"
	CodePhotoMismatch  Code = "photo_mismatch"
	CodeRateLimited    Code = "rate_limited"
	CodeAccountBanned  Code = "account_banned"

	// Provider failures. Retryable and never counted against the user.
	CodeProviderUnavailable Code = "provider_unavailable"
	CodeProviderTimeout     Code = "provider_timeout"

	// Verification flow states surfaced as errors.
	CodePendingReview     Code = "pending_review"
	CodeAttemptInProgress Code = "attempt_in_progress"
	CodeNotVerified       Code = "not_verified"
)

// Error is a domain error with a client-safe code and message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error with the same code, so
// errors.Is(err, dErrors.New(code, "")) matches regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a domain error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any domain error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost domain code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message, or "" for foreign errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
