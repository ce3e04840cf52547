package model

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates every failure the fairness and allocation core can report.
type ErrorKind string

const (
	KindAlreadyActive   ErrorKind = "ALREADY_ACTIVE"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindInvalidInput    ErrorKind = "INVALID_INPUT"
	KindSeedSubstituted ErrorKind = "SEED_SUBSTITUTED"
	KindTicketMismatch  ErrorKind = "TICKET_MISMATCH"
	KindInfeasible      ErrorKind = "INFEASIBLE"
	KindHashFailure     ErrorKind = "HASH_FAILURE"
)

// Error is a typed failure. Two errors are equal under errors.Is when their kinds match.
type Error struct {
	Kind ErrorKind
	Msg  string
}

var (
	ErrAlreadyActive = &Error{Kind: KindAlreadyActive}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrInfeasible    = &Error{Kind: KindInfeasible}
	ErrHashFailure   = &Error{Kind: KindHashFailure}
)

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}

	return string(e.Kind) + ": " + e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}
