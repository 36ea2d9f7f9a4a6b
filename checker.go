package authx

import "context"

// Checker provides permission checking for a specific caller authorization.
// It is typically created by the Service and stored in context for use in
// handlers. The caller's access set is resolved once on first use and reused
// for the Checker's lifetime, so a Checker must not outlive the request it
// was created for.
type Checker struct {
	realm         string
	authorization *AuthorizationRecord
	executor      *Executor

	access []string
	values ContextValues
	loaded bool
}

// NewChecker creates a Checker for a caller authorization. A nil
// authorization yields an anonymous checker that denies everything.
func NewChecker(realm string, authorization *AuthorizationRecord, executor *Executor) *Checker {
	return &Checker{
		realm:         realm,
		authorization: authorization,
		executor:      executor,
	}
}

// AuthorizationID returns the id of the authorization this checker is for,
// or "" for an anonymous checker.
func (c *Checker) AuthorizationID() string {
	if c.authorization == nil {
		return ""
	}
	return c.authorization.EntityID
}

// UserID returns the id of the user behind this checker's authorization, or
// "" for an anonymous checker.
func (c *Checker) UserID() string {
	if c.authorization == nil {
		return ""
	}
	return c.authorization.UserID
}

// Access returns the caller's effective scope set, resolving it through the
// access graph on first call.
func (c *Checker) Access(ctx context.Context) ([]string, error) {
	if c.authorization == nil {
		return nil, nil
	}
	if !c.loaded {
		v, err := c.executor.ContextValuesFor(ctx, c.authorization)
		if err != nil {
			return nil, err
		}
		access, err := c.authorization.Access(ctx, c.executor, v)
		if err != nil {
			return nil, err
		}
		c.values = v
		c.access = access
		c.loaded = true
	}
	return c.access, nil
}

// Can checks if the caller's access covers every one of the given scopes.
//
// Example:
//
//	ok, err := checker.Can(ctx, "app:v2.user.....*..:r....")
func (c *Checker) Can(ctx context.Context, scopes ...string) (bool, error) {
	access, err := c.Access(ctx)
	if err != nil {
		return false, err
	}
	return IsSuperset(access, scopes...), nil
}

// CanAny checks if the caller's access covers at least one of the given
// scopes.
func (c *Checker) CanAny(ctx context.Context, scopes ...string) (bool, error) {
	access, err := c.Access(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range scopes {
		if IsSuperset(access, s) {
			return true, nil
		}
	}
	return false, nil
}

// CanAll is an alias of Can kept for symmetry with CanAny.
func (c *Checker) CanAll(ctx context.Context, scopes ...string) (bool, error) {
	return c.Can(ctx, scopes...)
}

// CanOn checks if the caller may perform an action on a specific entity,
// building the canonical scope from the entity reference.
func (c *Checker) CanOn(ctx context.Context, ref ResourceRef, action Action) (bool, error) {
	return c.Can(ctx, FormatScope(c.realm, ref, action))
}

// Values returns the template substitution values derived from the caller's
// authorization. Access must have been resolved first; zero values are
// returned for an anonymous checker.
func (c *Checker) Values(ctx context.Context) (ContextValues, error) {
	if c.authorization == nil {
		return ContextValues{}, nil
	}
	if _, err := c.Access(ctx); err != nil {
		return ContextValues{}, err
	}
	return c.values, nil
}

// IsAnonymous returns true if the checker carries no authorization.
func (c *Checker) IsAnonymous() bool {
	return c.authorization == nil
}
