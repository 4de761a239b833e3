package crashtest

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrTestNotFound    = errors.New("test not found")
	ErrInvalidTestID   = errors.New("test id must be specified")
	ErrInvalidTenantID = errors.New("tenant id must be specified")
	ErrQuotaExceeded   = errors.New("maximum number of tests per tenant reached")
	ErrInvalidPageLink = errors.New("invalid page link")
)

// ValidationError reports a test record that failed a business rule before
// any storage mutation took place. Reason is safe to surface to callers.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConstraintViolationError is raised by the storage layer when a delete or
// save is rejected by a database constraint. The service layer inspects
// Constraint to decide whether the violation maps to a domain rule.
type ConstraintViolationError struct {
	Constraint string
	Err        error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint %q violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintViolationError) Unwrap() error { return e.Err }
