package authx

import (
	"context"
)

// Context keys for request-scoped values.
type contextKey string

const (
	contextKeyIdentity  contextKey = "authx:identity"
	contextKeyChecker   contextKey = "authx:checker"
	contextKeyIPAddress contextKey = "authx:ip_address"
	contextKeyUserAgent contextKey = "authx:user_agent"
	contextKeyRequestID contextKey = "authx:request_id"
)

// WithIdentity adds the validated caller identity to the context.
// This is set by middleware after credential validation.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, id)
}

// GetIdentity retrieves the validated caller identity from context.
// Returns nil for anonymous requests.
func GetIdentity(ctx context.Context) *Identity {
	if v := ctx.Value(contextKeyIdentity); v != nil {
		if id, ok := v.(*Identity); ok {
			return id
		}
	}
	return nil
}

// GetAuthorizationID retrieves the caller's authorization id from context.
// Returns empty string for anonymous requests.
func GetAuthorizationID(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.AuthorizationID
	}
	return ""
}

// MustGetIdentity retrieves the caller identity from context.
// Panics if not set.
func MustGetIdentity(ctx context.Context) *Identity {
	id := GetIdentity(ctx)
	if id == nil {
		panic("authx: identity not in context")
	}
	return id
}

// WithChecker adds a Checker to the context.
// This is set by middleware and can be retrieved in handlers.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker retrieves the Checker from context.
// Returns nil if not set.
func GetChecker(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	return nil
}

// FromContext retrieves the Checker from context.
// Alias for GetChecker for convenience.
func FromContext(ctx context.Context) *Checker {
	return GetChecker(ctx)
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	if v := ctx.Value(contextKeyIPAddress); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	AuthorizationID string
	IPAddress       string
	UserAgent       string
	RequestID       string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		AuthorizationID: GetAuthorizationID(ctx),
		IPAddress:       GetIPAddress(ctx),
		UserAgent:       GetUserAgent(ctx),
		RequestID:       GetRequestID(ctx),
	}
}
