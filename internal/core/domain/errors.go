package domain

import (
	"errors"
	"fmt"
)

// Kind classifies business failures so callers can branch on the
// class of error without parsing messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidArgument
	KindInsufficientInventory
	KindInvalidState
	KindConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindInsufficientInventory:
		return "insufficient_inventory"
	case KindInvalidState:
		return "invalid_state"
	case KindConstraintViolation:
		return "constraint_violation"
	default:
		return "unknown"
	}
}

// Error is a business-rule failure. The message is part of the contract:
// callers may classify on its exact wording.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func InvalidArgument(format string, args ...any) *Error {
	return newError(KindInvalidArgument, format, args...)
}

func InsufficientInventory(format string, args ...any) *Error {
	return newError(KindInsufficientInventory, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return newError(KindInvalidState, format, args...)
}

func ConstraintViolation(format string, args ...any) *Error {
	return newError(KindConstraintViolation, format, args...)
}

// KindOf returns the Kind carried by err, or KindUnknown for errors
// that did not originate from a business rule.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
