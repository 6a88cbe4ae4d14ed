package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at component boundaries. The API layer maps
// kinds to HTTP status codes; components never deal in HTTP directly.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUnsupportedRuntime
	KindSandboxCreate
	KindSandboxMissing
	KindSandboxOp
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnsupportedRuntime:
		return "unsupported_runtime"
	case KindSandboxCreate:
		return "sandbox_create"
	case KindSandboxMissing:
		return "sandbox_missing"
	case KindSandboxOp:
		return "sandbox_op"
	default:
		return "internal"
	}
}

// AppError carries a kind and a caller-safe message. The wrapped error, if
// any, is for logs only.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validationf(format string, args ...any) *AppError {
	return NewError(KindValidation, format, args...)
}

func NotFoundf(format string, args ...any) *AppError {
	return NewError(KindNotFound, format, args...)
}

func Forbiddenf(format string, args ...any) *AppError {
	return NewError(KindForbidden, format, args...)
}

func Conflictf(format string, args ...any) *AppError {
	return NewError(KindConflict, format, args...)
}

// KindOf extracts the classification from err, defaulting to KindInternal
// for errors that did not originate in this codebase.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-safe message for err. Internal errors are
// masked with a generic message so driver and DB details never leak.
func PublicMessage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Message
	}
	return "Internal server error"
}
