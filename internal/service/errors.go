package service

import (
	"errors"
	"fmt"
)

// ValidationError carries a machine-readable reason code so callers get a
// specific failure cause, never a bare boolean.
type ValidationError struct {
	Code   string // e.g. "amount_not_numeric", "amount_below_minimum"
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s (%s)", e.Field, e.Reason, e.Code)
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Reason, e.Code)
}

func newValidationError(code, field, reason string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Reason: reason}
}

// AsValidation unwraps err into a *ValidationError if possible.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// InvalidTransitionError is returned when a review decision targets a
// request that has already reached a conflicting terminal state.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// AsInvalidTransition unwraps err into an *InvalidTransitionError.
func AsInvalidTransition(err error) (*InvalidTransitionError, bool) {
	var te *InvalidTransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
