// Package apperr defines the error taxonomy shared by all services.
// Every failure carries a stable numeric code and a kind that the HTTP
// layer maps to a status code.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota
	KindConflict
	KindInvalidState
	KindValidation
	KindUnauthorized
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Code is a catalog entry: a kind, a stable numeric code and a message
// template. The numeric codes are part of the API contract and must not
// be renumbered.
type Code struct {
	Kind Kind
	Num  int
	msg  string
}

var (
	PersonNotFound      = Code{KindNotFound, 1008, "person %s not found"}
	DuplicateIstID      = Code{KindConflict, 1004, "a person with IST id %s already exists"}
	DuplicateEmail      = Code{KindConflict, 1005, "a person with email %s already exists"}
	InvalidRole         = Code{KindValidation, 1006, "invalid role: %s"}
	RoleMismatch        = Code{KindUnauthorized, 1007, "person %s does not hold role %s"}
	ThesisNotFound      = Code{KindNotFound, 2001, "thesis workflow %s not found"}
	ThesisExists        = Code{KindConflict, 2002, "student %s already has a thesis workflow"}
	InvalidThesisState  = Code{KindInvalidState, 2003, "invalid thesis workflow state: %s"}
	JuryMemberNotFound  = Code{KindNotFound, 2004, "one or more jury members not found"}
	DefenseNotFound     = Code{KindNotFound, 3001, "defense workflow %s not found"}
	DefenseExists       = Code{KindConflict, 3002, "a defense already exists for thesis %s"}
	InvalidDefenseState = Code{KindInvalidState, 3003, "invalid defense workflow state: %s"}
	Validation          = Code{KindValidation, 4001, "validation error: %s"}
	Unauthorized        = Code{KindUnauthorized, 4002, "not authorized: %s"}
	Internal            = Code{KindInternal, 9999, "internal error"}
)

type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(code Code, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(code.msg, args...),
	}
}

// Wrap attaches a cause, typically a storage failure, to a catalog entry.
func Wrap(err error, code Code, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(code.msg, args...),
		cause:   err,
	}
}

// Internalf wraps an infrastructure failure as an internal error.
func Internalf(err error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    Internal,
		Message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// KindOf reports the kind of err, or KindInternal for unrecognized errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given catalog code.
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code.Num == code.Num
	}
	return false
}
