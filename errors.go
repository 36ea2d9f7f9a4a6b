package authx

import (
	"errors"
	"fmt"
)

// Sentinel errors for AuthX operations.
var (
	// ErrValidation is returned when input is malformed: a bad entity id,
	// an invalid scope literal or pattern, or a malformed URL.
	ErrValidation = errors.New("authx: validation failed")

	// ErrNotFound is returned when a referenced entity id has no current record.
	ErrNotFound = errors.New("authx: not found")

	// ErrConflict is returned when an explicitly supplied entity id is already
	// in use, or when a concurrent writer created the current record first.
	ErrConflict = errors.New("authx: conflict")

	// ErrForbidden is returned when a permission check failed for an
	// authenticated caller. It never reveals why beyond the action attempted.
	ErrForbidden = errors.New("authx: forbidden")

	// ErrNotAuthorized is returned when a presented credential failed
	// validation (bad signature, expired, malformed payload, disabled
	// authorization) and no caller identity could be established at all.
	ErrNotAuthorized = errors.New("authx: not authorized")

	// ErrInvariant indicates store corruption (e.g. more than one current
	// record for an entity, more than one enabled grant per user/client pair).
	// It is never retried and must be surfaced as an unrecoverable error.
	ErrInvariant = errors.New("authx: invariant violation")

	// ErrDatabase is returned when a database operation fails.
	ErrDatabase = errors.New("authx: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err             error      // Underlying sentinel error
	Message         string     // Additional context
	Kind            EntityKind // Entity kind involved (if applicable)
	EntityID        string     // Entity involved (if applicable)
	Scope           string     // Scope involved (if applicable)
	AuthorizationID string     // Caller authorization (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithEntity adds entity information to the error.
func (e *Error) WithEntity(kind EntityKind, entityID string) *Error {
	e.Kind = kind
	e.EntityID = entityID
	return e
}

// WithScope adds the scope under evaluation to the error.
func (e *Error) WithScope(scope string) *Error {
	e.Scope = scope
	return e
}

// WithAuthorization adds the caller's authorization id to the error.
func (e *Error) WithAuthorization(authorizationID string) *Error {
	e.AuthorizationID = authorizationID
	return e
}

// IsValidation checks if an error is due to malformed input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound checks if an error means an entity has no current record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is due to an entity id already in use.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsForbidden checks if an error is a failed permission check.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotAuthorized checks if an error means no caller identity could be
// established from the presented credential.
func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// IsInvariant checks if an error indicates store corruption.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}
