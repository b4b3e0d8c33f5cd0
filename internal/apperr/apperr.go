// Package apperr defines the machine-readable error kinds returned by the
// import, catalog and donation operations.
//
// Callers match on the kind with errors.Is against a sentinel, or pull the
// code out with CodeOf:
//
//	if errors.Is(err, apperr.ErrUnauthorized) { ... }
//	switch apperr.CodeOf(err) { case apperr.CodeRateLimited: ... }
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeExternalAPI         Code = "EXTERNAL_API_ERROR"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeTimeout             Code = "TIMEOUT"
	CodeStorage             Code = "STORAGE_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeProductNotFound     Code = "PRODUCT_NOT_FOUND"
	CodeInvalidDonationType Code = "INVALID_DONATION_TYPE"
	CodeAlreadyFunded       Code = "ALREADY_FUNDED"
	CodeAlreadyFulfilled    Code = "ALREADY_FULFILLED"
	CodeDuplicateName       Code = "DUPLICATE_NAME"
)

// Retryable reports whether an operation failing with c may succeed later
// without any change to its input.
func (c Code) Retryable() bool {
	switch c {
	case CodeExternalAPI, CodeRateLimited, CodeTimeout, CodeStorage:
		return true
	default:
		return false
	}
}

type Error struct {
	Code    Code   `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

var (
	ErrUnauthorized        = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation error"}
	ErrExternalAPI         = &Error{Code: CodeExternalAPI, Message: "external service failed"}
	ErrRateLimited         = &Error{Code: CodeRateLimited, Message: "rate limited"}
	ErrTimeout             = &Error{Code: CodeTimeout, Message: "timed out"}
	ErrStorage             = &Error{Code: CodeStorage, Message: "storage failed"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict            = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal error"}
	ErrProductNotFound     = &Error{Code: CodeProductNotFound, Message: "product not found"}
	ErrInvalidDonationType = &Error{Code: CodeInvalidDonationType, Message: "invalid donation type"}
	ErrAlreadyFunded       = &Error{Code: CodeAlreadyFunded, Message: "already funded"}
	ErrAlreadyFulfilled    = &Error{Code: CodeAlreadyFulfilled, Message: "already fulfilled"}
	ErrDuplicateName       = &Error{Code: CodeDuplicateName, Message: "duplicate name"}
)

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Unauthorized() *Error {
	return New(CodeUnauthorized, "unauthorized")
}

func Validation(msg string) *Error {
	return New(CodeValidation, msg)
}

func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

func ExternalAPI(msg string) *Error {
	return New(CodeExternalAPI, msg)
}

func RateLimited(msg string) *Error {
	return New(CodeRateLimited, msg)
}

func Timeout(msg string) *Error {
	return New(CodeTimeout, msg)
}

func Storage(msg string) *Error {
	return New(CodeStorage, msg)
}

func NotFound(msg string) *Error {
	return New(CodeNotFound, msg)
}

func Internal(msg string) *Error {
	return New(CodeInternal, msg)
}

// CodeOf extracts the code from err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the human message carried by err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
