// Package apperr defines the error taxonomy shared by all services.
// Services return *Error values; the HTTP layer translates them once.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindBusinessRule
	KindBookingConflict
	KindAlreadyExists
	KindUnauthenticated
	KindForbidden
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindBusinessRule:
		return "business_rule"
	case KindBookingConflict:
		return "booking_conflict"
	case KindAlreadyExists:
		return "already_exists"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, and by code when the target carries one.
// A booking conflict also matches the business rule sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	kindMatches := t.Kind == e.Kind || (t.Kind == KindBusinessRule && e.Kind == KindBookingConflict)
	if !kindMatches {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrBusinessRule    = &Error{Kind: KindBusinessRule}
	ErrBookingConflict = &Error{Kind: KindBookingConflict}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrExternal        = &Error{Kind: KindExternal}
)

func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %v not found", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

func Validation(code, message string, details any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Details: details}
}

func BusinessRule(code, message string) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: message}
}

func BookingConflict(message string, details any) *Error {
	return &Error{Kind: KindBookingConflict, Code: "BOOKING_CONFLICT", Message: message, Details: details}
}

func AlreadyExists(code, message string) *Error {
	return &Error{Kind: KindAlreadyExists, Code: code, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: "UNAUTHORIZED", Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

// External wraps a failure of a remote dependency. The cause is kept for
// logs and never rendered to clients.
func External(service string, err error) *Error {
	return &Error{
		Kind:    KindExternal,
		Code:    "EXTERNAL_SERVICE_ERROR",
		Message: service + " is unavailable",
		Err:     err,
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
