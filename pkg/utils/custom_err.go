package utils

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrNotFound           = errors.New("not found")
	ErrSignature          = errors.New("signature verification failed")
	ErrInvalidPlan        = errors.New("invalid plan")
	ErrSubscriptionActive = errors.New("subscription already active")
	ErrUpstream           = errors.New("upstream service error")
	ErrDatabaseError      = errors.New("database error")
	ErrInvalidPage        = errors.New("invalid page parameter")
	ErrInvalidPageSize    = errors.New("invalid page size parameter")
)

// ValidationError carries the field level reason back to the client.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// QuotaExceededError is returned when a user has used up the reviews of their plan.
type QuotaExceededError struct {
	Plan  string
	Used  int64
	Limit int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("review quota exceeded: %d of %d used on plan %s", e.Used, e.Limit, e.Plan)
}

// Upstream wraps a provider failure so it is classified as ErrUpstream
// while keeping the cause for logs.
func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// Database wraps a storage failure in the same way.
func Database(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDatabaseError, err)
}

// InvalidPlan reports an unknown plan or price identifier.
func InvalidPlan(ref string) error {
	return fmt.Errorf("%w: %q", ErrInvalidPlan, ref)
}
