package authx

import (
	"context"
)

// The access-resolution graph computes a caller's effective permission set
// live on every call: Authorization ⊆ Grant ⊆ User, each link an
// intersection, with role membership and role scopes read fresh through the
// executor. Nothing here is ever persisted; role membership and scopes can
// change between requests.

// Access expands the role's stored scope patterns, substituting template
// placeholders with the caller's current authorization/user/grant/client
// ids. Patterns referencing a placeholder with no value are dropped. The
// result is a simplified pattern set; a disabled role grants nothing.
func (r *RoleRecord) Access(v ContextValues) []string {
	if !r.Enabled {
		return nil
	}
	out := make([]string, 0, len(r.Scopes))
	for _, pattern := range r.Scopes {
		s, ok := substituteTemplates(pattern, v)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return Simplify(out)
}

// Access returns the union of the access of every enabled role the user
// currently belongs to, or nothing if the user is disabled. Recomputed per
// call.
func (u *UserRecord) Access(ctx context.Context, e *Executor, v ContextValues) ([]string, error) {
	if !u.Enabled {
		return nil, nil
	}
	roles, err := e.UserRoles(ctx, u.EntityID)
	if err != nil {
		return nil, err
	}
	var scopes []string
	for _, role := range roles {
		scopes = append(scopes, role.Access(v)...)
	}
	return Simplify(scopes), nil
}

// Can reports whether the user's current access covers every given scope.
func (u *UserRecord) Can(ctx context.Context, e *Executor, v ContextValues, scopes ...string) (bool, error) {
	access, err := u.Access(ctx, e, v)
	if err != nil {
		return false, err
	}
	return IsSuperset(access, scopes...), nil
}

// Access returns the grant's scopes intersected with its owner's current
// access: a grant can never exceed what its owning user presently possesses,
// even if the grant was created when the user had broader access.
func (g *GrantRecord) Access(ctx context.Context, e *Executor, v ContextValues) ([]string, error) {
	if !g.Enabled {
		return nil, nil
	}
	user, err := e.User(ctx, g.UserID)
	if err != nil {
		return nil, err
	}
	userAccess, err := user.Access(ctx, e, v)
	if err != nil {
		return nil, err
	}
	return GetIntersection(g.Scopes, userAccess), nil
}

// Can reports whether the grant's current access covers every given scope.
func (g *GrantRecord) Can(ctx context.Context, e *Executor, v ContextValues, scopes ...string) (bool, error) {
	access, err := g.Access(ctx, e, v)
	if err != nil {
		return false, err
	}
	return IsSuperset(access, scopes...), nil
}

// Access returns the authorization's scopes intersected with its owning
// grant's access, or with its owning user's access when the authorization
// has no grant. Each link of the narrowing chain is computed live.
func (a *AuthorizationRecord) Access(ctx context.Context, e *Executor, v ContextValues) ([]string, error) {
	if !a.Enabled {
		return nil, nil
	}
	if a.GrantID == "" {
		user, err := e.User(ctx, a.UserID)
		if err != nil {
			return nil, err
		}
		userAccess, err := user.Access(ctx, e, v)
		if err != nil {
			return nil, err
		}
		return GetIntersection(a.Scopes, userAccess), nil
	}
	grant, err := e.Grant(ctx, a.GrantID)
	if err != nil {
		return nil, err
	}
	grantAccess, err := grant.Access(ctx, e, v)
	if err != nil {
		return nil, err
	}
	return GetIntersection(a.Scopes, grantAccess), nil
}

// Can reports whether the authorization's current access covers every given
// scope. This is the predicate behind every permission check.
func (a *AuthorizationRecord) Can(ctx context.Context, e *Executor, v ContextValues, scopes ...string) (bool, error) {
	access, err := a.Access(ctx, e, v)
	if err != nil {
		return false, err
	}
	return IsSuperset(access, scopes...), nil
}

// ContextValuesFor derives the template substitution values for a caller
// authorization, resolving the owning grant's client when one exists.
func (e *Executor) ContextValuesFor(ctx context.Context, a *AuthorizationRecord) (ContextValues, error) {
	v := ContextValues{
		CurrentAuthorizationID: a.EntityID,
		CurrentUserID:          a.UserID,
	}
	if a.GrantID != "" {
		v.CurrentGrantID = a.GrantID
		grant, err := e.Grant(ctx, a.GrantID)
		if err != nil {
			return ContextValues{}, err
		}
		v.CurrentClientID = grant.ClientID
	}
	return v, nil
}

// accessible is the single authorization checkpoint used by every read and
// write path: it builds the canonical scope describing the action on the
// specific entity and asks whether the caller can do it. An anonymous caller
// can do nothing.
func accessible(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, ref ResourceRef, action Action) (bool, error) {
	if caller == nil {
		return false, nil
	}
	v, err := e.ContextValuesFor(ctx, caller)
	if err != nil {
		return false, err
	}
	return caller.Can(ctx, e, v, FormatScope(realm, ref, action))
}

// IsAccessibleBy reports whether the caller may perform the action on this
// user.
func (u *UserRecord) IsAccessibleBy(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, action Action) (bool, error) {
	return accessible(ctx, e, realm, caller, u.ResourceRef(), action)
}

// IsAccessibleBy reports whether the caller may perform the action on this
// role.
func (r *RoleRecord) IsAccessibleBy(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, action Action) (bool, error) {
	return accessible(ctx, e, realm, caller, r.ResourceRef(), action)
}

// IsAccessibleBy reports whether the caller may perform the action on this
// grant.
func (g *GrantRecord) IsAccessibleBy(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, action Action) (bool, error) {
	return accessible(ctx, e, realm, caller, g.ResourceRef(), action)
}

// IsAccessibleBy reports whether the caller may perform the action on this
// authorization. The owning grant's client id is resolved so scopes
// addressing "authorizations of client X" match.
func (a *AuthorizationRecord) IsAccessibleBy(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, action Action) (bool, error) {
	ref := a.ResourceRef()
	if a.GrantID != "" {
		grant, err := e.Grant(ctx, a.GrantID)
		if err != nil {
			return false, err
		}
		ref.ClientID = grant.ClientID
	}
	return accessible(ctx, e, realm, caller, ref, action)
}

// IsAccessibleBy reports whether the caller may perform the action on this
// client.
func (c *ClientRecord) IsAccessibleBy(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, action Action) (bool, error) {
	return accessible(ctx, e, realm, caller, c.ResourceRef(), action)
}

// IsAccessibleBy reports whether the caller may perform the action on this
// authority.
func (r *AuthorityRecord) IsAccessibleBy(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, action Action) (bool, error) {
	return accessible(ctx, e, realm, caller, r.ResourceRef(), action)
}

// IsAccessibleBy reports whether the caller may perform the action on this
// credential.
func (c *CredentialRecord) IsAccessibleBy(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, action Action) (bool, error) {
	return accessible(ctx, e, realm, caller, c.ResourceRef(), action)
}
