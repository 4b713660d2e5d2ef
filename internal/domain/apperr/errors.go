// Package apperr is the error taxonomy shared by every service. Each kind is a
// sentinel; constructors wrap a kind with the specific rule that was violated
// so callers branch with errors.Is and users see the rule.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation                 = errors.New("validation error")
	ErrNotFound                   = errors.New("not found")
	ErrInvalidTransition          = errors.New("invalid transition")
	ErrInvalidState               = errors.New("invalid state")
	ErrInvalidAmount              = errors.New("invalid amount")
	ErrConcurrencyConflict        = errors.New("concurrency conflict")
	ErrExternalServiceUnavailable = errors.New("external service unavailable")
	ErrLimitExceeded              = errors.New("limit exceeded")
	ErrAssessmentInProgress       = errors.New("assessment in progress")
	ErrInsufficientBalance        = errors.New("insufficient balance")
	ErrClaimNotApproved           = errors.New("claim not approved")
	ErrGuaranteeExpired           = errors.New("guarantee expired")
)

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func Validation(format string, args ...any) error { return wrap(ErrValidation, format, args...) }
func NotFound(format string, args ...any) error   { return wrap(ErrNotFound, format, args...) }
func InvalidTransition(format string, args ...any) error {
	return wrap(ErrInvalidTransition, format, args...)
}
func InvalidState(format string, args ...any) error  { return wrap(ErrInvalidState, format, args...) }
func InvalidAmount(format string, args ...any) error { return wrap(ErrInvalidAmount, format, args...) }
func Conflict(format string, args ...any) error {
	return wrap(ErrConcurrencyConflict, format, args...)
}
func Unavailable(format string, args ...any) error {
	return wrap(ErrExternalServiceUnavailable, format, args...)
}
func LimitExceeded(format string, args ...any) error { return wrap(ErrLimitExceeded, format, args...) }
func InsufficientBalance(format string, args ...any) error {
	return wrap(ErrInsufficientBalance, format, args...)
}

// kinds is ordered most specific first.
var kinds = []struct {
	err  error
	code string
}{
	{ErrValidation, "validation_error"},
	{ErrNotFound, "not_found"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrInvalidState, "invalid_state"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrConcurrencyConflict, "concurrency_conflict"},
	{ErrExternalServiceUnavailable, "external_service_unavailable"},
	{ErrLimitExceeded, "limit_exceeded"},
	{ErrAssessmentInProgress, "assessment_in_progress"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrClaimNotApproved, "claim_not_approved"},
	{ErrGuaranteeExpired, "guarantee_expired"},
}

// Code returns a stable machine-readable code for err, "internal" when err is
// not part of the taxonomy and "none" for nil.
func Code(err error) string {
	if err == nil {
		return "none"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}

// Retryable reports whether the caller may safely retry the same request.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrExternalServiceUnavailable) ||
		errors.Is(err, ErrAssessmentInProgress)
}
