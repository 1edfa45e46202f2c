package types

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies every failure surfaced by a ledger operation.
// Callers must be able to tell which class applies without inspecting
// collaborator internals.
type ErrorCategory string

const (
	Validation        ErrorCategory = "VALIDATION"
	State             ErrorCategory = "STATE"
	Authorization     ErrorCategory = "AUTHORIZATION"
	InsufficientFunds ErrorCategory = "INSUFFICIENT_FUNDS"
	Oracle            ErrorCategory = "ORACLE"
	ExternalEffect    ErrorCategory = "EXTERNAL_EFFECT"
	Internal          ErrorCategory = "INTERNAL"
)

func (c ErrorCategory) String() string {
	return string(c)
}

// Error is the single error type crossing the ledger's public surface.
type Error struct {
	category ErrorCategory
	err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.category, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Category() ErrorCategory {
	return e.category
}

func NewError(category ErrorCategory, err error) *Error {
	return &Error{category: category, err: err}
}

func NewErrorWithMsg(category ErrorCategory, msg string) *Error {
	return &Error{category: category, err: errors.New(msg)}
}

func NewValidationError(err error) *Error {
	return NewError(Validation, err)
}

func NewStateError(err error) *Error {
	return NewError(State, err)
}

func NewAuthorizationError(err error) *Error {
	return NewError(Authorization, err)
}

func NewInsufficientFundsError(err error) *Error {
	return NewError(InsufficientFunds, err)
}

func NewOracleError(err error) *Error {
	return NewError(Oracle, err)
}

func NewExternalEffectError(err error) *Error {
	return NewError(ExternalEffect, err)
}

func NewInternalError(err error) *Error {
	return NewError(Internal, err)
}

func categoryOf(err error) (ErrorCategory, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.category, true
	}
	return "", false
}

func IsValidationError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == Validation
}

func IsStateError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == State
}

func IsAuthorizationError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == Authorization
}

func IsInsufficientFundsError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == InsufficientFunds
}

func IsOracleError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == Oracle
}

func IsExternalEffectError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == ExternalEffect
}

func IsInternalError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == Internal
}
