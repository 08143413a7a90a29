// Package errors carries typed API errors through the service layers. A
// *Error keeps its Code and Reason through fmt.Errorf wrapping, and the
// response writer maps it to a status and body.
package errors

import (
	stderrors "errors"
	"fmt"
)

type Error struct {
	code    Code
	reason  Reason
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err gives a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func Validation(reason Reason, message string) *Error {
	return New(CodeValidation, message).WithReason(reason)
}

func NotFound(reason Reason, message string) *Error {
	return New(CodeNotFound, message).WithReason(reason)
}

func Conflict(reason Reason, message string) *Error {
	return New(CodeConflict, message).WithReason(reason)
}

// StateConflict reports a lifecycle transition the current state forbids.
func StateConflict(reason Reason, message string) *Error {
	return New(CodeStateConflict, message).WithReason(reason)
}

// External wraps a failure of a remote dependency such as the gateway.
func External(reason Reason, err error, message string) *Error {
	return Wrap(CodeDependency, err, message).WithReason(reason)
}

// The accessors are nil-safe so callers can chain As(err).Reason().

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Reason() Reason {
	if e == nil {
		return ""
	}
	return e.reason
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) WithReason(reason Reason) *Error {
	if e != nil {
		e.reason = reason
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.reason == "":
		return fmt.Sprintf("%s: %s", e.code, e.message)
	default:
		return fmt.Sprintf("%s(%s): %s", e.code, e.reason, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

func ReasonOf(err error) Reason {
	return As(err).Reason()
}

// Retryable reports whether a client may repeat the request unchanged.
// Errors without a code count as internal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return MetadataFor(As(err).Code()).Retryable
}
