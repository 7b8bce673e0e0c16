package contracts

import (
	"errors"
	"fmt"
)

// Code classifies why a ledger operation was rejected.
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeEntityNotVerified  Code = "ENTITY_NOT_VERIFIED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeDuplicateID        Code = "DUPLICATE_ID"
	CodeNotOwner           Code = "NOT_OWNER"
	CodeInvalidStatus      Code = "INVALID_STATUS"
	CodeInvalidScore       Code = "INVALID_SCORE"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeAlreadyConfirmed   Code = "ALREADY_CONFIRMED"
	CodeAlreadyDisputed    Code = "ALREADY_DISPUTED"
	CodeAlreadyVerified    Code = "ALREADY_VERIFIED"
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"
	CodeLengthMismatch     Code = "LENGTH_MISMATCH"
	CodeInternal           Code = "INTERNAL"
)

// Sentinels for errors.Is; any *Error with the same code matches.
var (
	ErrUnauthorized       = &Error{Code: CodeUnauthorized}
	ErrEntityNotVerified  = &Error{Code: CodeEntityNotVerified}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrDuplicateID        = &Error{Code: CodeDuplicateID}
	ErrNotOwner           = &Error{Code: CodeNotOwner}
	ErrInvalidStatus      = &Error{Code: CodeInvalidStatus}
	ErrInvalidScore       = &Error{Code: CodeInvalidScore}
	ErrInvalidTransition  = &Error{Code: CodeInvalidTransition}
	ErrInvalidState       = &Error{Code: CodeInvalidState}
	ErrInvalidInput       = &Error{Code: CodeInvalidInput}
	ErrAlreadyConfirmed   = &Error{Code: CodeAlreadyConfirmed}
	ErrAlreadyDisputed    = &Error{Code: CodeAlreadyDisputed}
	ErrAlreadyVerified    = &Error{Code: CodeAlreadyVerified}
	ErrAlreadyInitialized = &Error{Code: CodeAlreadyInitialized}
	ErrLengthMismatch     = &Error{Code: CodeLengthMismatch}
	ErrInternal           = &Error{Code: CodeInternal}
)

// Error is returned by every contract transaction that rejects its input.
// Fabric clients only receive the string form, so it always starts with
// the code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(err error, code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
