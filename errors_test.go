package authx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSentinelErrors tests that all sentinel errors are properly defined
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrValidation", ErrValidation, "authx: validation failed"},
		{"ErrNotFound", ErrNotFound, "authx: not found"},
		{"ErrConflict", ErrConflict, "authx: conflict"},
		{"ErrForbidden", ErrForbidden, "authx: forbidden"},
		{"ErrNotAuthorized", ErrNotAuthorized, "authx: not authorized"},
		{"ErrInvariant", ErrInvariant, "authx: invariant violation"},
		{"ErrDatabase", ErrDatabase, "authx: database error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.msg, tt.err.Error())
			assert.NotNil(t, tt.err)
		})
	}
}

// TestError_Error tests the Error method of Error struct
func TestError_Error(t *testing.T) {
	t.Run("With message", func(t *testing.T) {
		err := &Error{
			Err:     ErrForbidden,
			Message: "caller's access does not cover this operation",
		}
		expected := "authx: forbidden: caller's access does not cover this operation"
		assert.Equal(t, expected, err.Error())
	})

	t.Run("Without message", func(t *testing.T) {
		err := &Error{
			Err: ErrForbidden,
		}
		assert.Equal(t, "authx: forbidden", err.Error())
	})
}

// TestError_Unwrap tests the Unwrap method
func TestError_Unwrap(t *testing.T) {
	err := &Error{
		Err:     ErrConflict,
		Message: "test message",
	}

	assert.Equal(t, ErrConflict, err.Unwrap())
}

// TestError_Is tests sentinel matching through the wrapper
func TestError_Is(t *testing.T) {
	err := NewError(ErrNotFound, "no current record for entity").
		WithEntity(KindUser, "u1")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
}

// TestErrorChaining tests the chainable context builders
func TestErrorChaining(t *testing.T) {
	err := NewError(ErrForbidden, "denied").
		WithEntity(KindGrant, "g1").
		WithScope("app:v2.grant...c1..g1..u1:w....").
		WithAuthorization("a1")

	assert.Equal(t, KindGrant, err.Kind)
	assert.Equal(t, "g1", err.EntityID)
	assert.Equal(t, "app:v2.grant...c1..g1..u1:w....", err.Scope)
	assert.Equal(t, "a1", err.AuthorizationID)
}

// TestErrorPredicates tests the classification helpers
func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsValidation(NewError(ErrValidation, "")))
	assert.True(t, IsNotFound(NewError(ErrNotFound, "")))
	assert.True(t, IsConflict(NewError(ErrConflict, "")))
	assert.True(t, IsForbidden(NewError(ErrForbidden, "")))
	assert.True(t, IsNotAuthorized(NewError(ErrNotAuthorized, "")))
	assert.True(t, IsInvariant(NewError(ErrInvariant, "")))

	assert.False(t, IsForbidden(NewError(ErrNotAuthorized, "")))
	assert.False(t, IsNotFound(nil))
}
