package authx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMiddlewareAuthenticate tests credential validation at the HTTP edge
func TestMiddlewareAuthenticate(t *testing.T) {
	key := generateTestKey(t)
	validator := NewValidator(WithKeys(&key.PublicKey))
	mw := NewMiddleware(nil, validator)

	var seen *Identity
	handler := mw.Authenticate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("Valid bearer token", func(t *testing.T) {
		seen = nil
		token := signTestToken(t, key, validTestClaims())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "a1", seen.AuthorizationID)
	})

	t.Run("No header passes through anonymous", func(t *testing.T) {
		seen = &Identity{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("Expired token is rejected", func(t *testing.T) {
		claims := validTestClaims()
		claims.ExpiresAt = jwtv5.NewNumericDate(time.Now().Add(-time.Hour))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, key, claims))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Garbage token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// TestMiddlewareRequireScopeAnonymous tests that scope checks reject
// unauthenticated requests before touching the service
func TestMiddlewareRequireScopeAnonymous(t *testing.T) {
	mw := NewMiddleware(nil, NewValidator())

	handler := mw.RequireScope("app:v2.user.......u1:r....")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for anonymous requests")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestMiddlewareInjectAuditContext tests audit metadata extraction
func TestMiddlewareInjectAuditContext(t *testing.T) {
	mw := NewMiddleware(nil, NewValidator())

	var ac AuditContext
	handler := mw.InjectAuditContext()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac = GetAuditContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "203.0.113.9", ac.IPAddress)
	assert.Equal(t, "test-agent", ac.UserAgent)
	assert.Equal(t, "req-42", ac.RequestID)
}

// TestDefaultErrorHandler tests error classification to HTTP status codes
func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"Not authorized", NewError(ErrNotAuthorized, ""), http.StatusUnauthorized},
		{"Forbidden", NewError(ErrForbidden, ""), http.StatusForbidden},
		{"Validation", NewError(ErrValidation, ""), http.StatusBadRequest},
		{"Not found", NewError(ErrNotFound, ""), http.StatusNotFound},
		{"Invariant", NewError(ErrInvariant, ""), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			defaultErrorHandler(rec, req, tt.err)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}
