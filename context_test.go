package authx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIdentityContext tests identity storage and retrieval
func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, GetIdentity(ctx))
	assert.Equal(t, "", GetAuthorizationID(ctx))

	id := &Identity{AuthorizationID: "a1", UserID: "u1"}
	ctx = WithIdentity(ctx, id)

	assert.Equal(t, id, GetIdentity(ctx))
	assert.Equal(t, "a1", GetAuthorizationID(ctx))
}

// TestMustGetIdentity tests the panicking accessor
func TestMustGetIdentity(t *testing.T) {
	assert.Panics(t, func() {
		MustGetIdentity(context.Background())
	})

	ctx := WithIdentity(context.Background(), &Identity{AuthorizationID: "a1"})
	assert.NotPanics(t, func() {
		assert.Equal(t, "a1", MustGetIdentity(ctx).AuthorizationID)
	})
}

// TestCheckerContext tests checker storage and retrieval
func TestCheckerContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetChecker(ctx))
	assert.Nil(t, FromContext(ctx))

	checker := NewChecker("app", nil, nil)
	ctx = WithChecker(ctx, checker)
	assert.Equal(t, checker, GetChecker(ctx))
	assert.Equal(t, checker, FromContext(ctx))
}

// TestAuditContext tests audit metadata round-tripping
func TestAuditContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithIdentity(ctx, &Identity{AuthorizationID: "a1"})
	ctx = WithIPAddress(ctx, "10.0.0.1")
	ctx = WithUserAgent(ctx, "test-agent")
	ctx = WithRequestID(ctx, "req-1")

	ac := GetAuditContext(ctx)
	assert.Equal(t, "a1", ac.AuthorizationID)
	assert.Equal(t, "10.0.0.1", ac.IPAddress)
	assert.Equal(t, "test-agent", ac.UserAgent)
	assert.Equal(t, "req-1", ac.RequestID)
}

// TestAnonymousChecker tests that a checker without an authorization denies
// everything without touching the database
func TestAnonymousChecker(t *testing.T) {
	ctx := context.Background()
	checker := NewChecker("app", nil, nil)

	assert.True(t, checker.IsAnonymous())
	assert.Equal(t, "", checker.AuthorizationID())
	assert.Equal(t, "", checker.UserID())

	access, err := checker.Access(ctx)
	assert.NoError(t, err)
	assert.Nil(t, access)

	ok, err := checker.Can(ctx, "app:v2.user.......u1:r....")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = checker.CanAny(ctx, "app:v2.user.......u1:r....")
	assert.NoError(t, err)
	assert.False(t, ok)

	v, err := checker.Values(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ContextValues{}, v)
}
