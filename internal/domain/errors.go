package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies every failure a chat turn can surface.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConnect    ErrorKind = "connect"
	KindTimeout    ErrorKind = "timeout"
	KindProvider   ErrorKind = "provider"
	KindMalformed  ErrorKind = "malformed_response"
	KindInternal   ErrorKind = "internal"
)

// Error is the structured error carried across the provider boundary and
// out of the orchestrator. Callers branch on Kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error wrapping cause (which may be nil).
func NewError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func NewValidationError(format string, args ...any) *Error {
	return NewError(KindValidation, nil, format, args...)
}

// KindOf reports the kind of err. Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) && de != nil {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// ErrorDetail returns the user-facing message for err.
func ErrorDetail(err error) string {
	var de *Error
	if errors.As(err, &de) && de != nil {
		return de.Msg
	}
	return "internal error"
}
