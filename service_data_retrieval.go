package authx

import "context"

// Relationship queries walk one edge of the entity graph and return the
// related records the caller may read. Unlike the by-id reads, which fail on
// the first forbidden record, these filter: listing is answering "which of
// these may I see", not "show me these exact ones".

// filterAccessible keeps the records the caller may read.
func filterAccessible[R accessCheckedRecord](ctx context.Context, s *Service, e *Executor, caller *AuthorizationRecord, recs []R) ([]R, error) {
	out := make([]R, 0, len(recs))
	for _, rec := range recs {
		ok, err := rec.IsAccessibleBy(ctx, e, s.realm, caller, ActionReadBasic)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// UserRoles returns the enabled roles the user belongs to that the caller
// may read.
func (s *Service) UserRoles(ctx context.Context, callerAuthorizationID, userID string) ([]*RoleRecord, error) {
	var out []*RoleRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		roles, err := e.UserRoles(ctx, userID)
		if err != nil {
			return err
		}
		out, err = filterAccessible(ctx, tx, e, caller, roles)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserGrants returns the user's grants that the caller may read.
func (s *Service) UserGrants(ctx context.Context, callerAuthorizationID, userID string) ([]*GrantRecord, error) {
	var out []*GrantRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		ids, err := e.UserGrantIDs(ctx, userID)
		if err != nil {
			return err
		}
		grants, err := e.Grants(ctx, ids)
		if err != nil {
			return err
		}
		out, err = filterAccessible(ctx, tx, e, caller, grants)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserGrantForClient returns the user's enabled grant for a client, or nil
// if none exists or the caller may not read it.
func (s *Service) UserGrantForClient(ctx context.Context, callerAuthorizationID, userID, clientID string) (*GrantRecord, error) {
	var out *GrantRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		grant, err := e.UserGrantForClient(ctx, userID, clientID)
		if err != nil || grant == nil {
			return err
		}
		ok, err := grant.IsAccessibleBy(ctx, e, tx.realm, caller, ActionReadBasic)
		if err != nil {
			return err
		}
		if ok {
			out = grant
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserCredentials returns the user's credentials that the caller may read.
func (s *Service) UserCredentials(ctx context.Context, callerAuthorizationID, userID string) ([]*CredentialRecord, error) {
	var out []*CredentialRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		ids, err := e.UserCredentialIDs(ctx, userID)
		if err != nil {
			return err
		}
		creds, err := e.Credentials(ctx, ids)
		if err != nil {
			return err
		}
		out, err = filterAccessible(ctx, tx, e, caller, creds)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AuthorityCredentials returns the authority's credentials that the caller
// may read, resolved through the authority's strategy.
func (s *Service) AuthorityCredentials(ctx context.Context, callerAuthorizationID, authorityID string) ([]*CredentialRecord, error) {
	var out []*CredentialRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		strategy, _, err := tx.strategies.ForAuthority(ctx, e, authorityID)
		if err != nil {
			return err
		}
		creds, err := strategy.Credentials(ctx, e, authorityID)
		if err != nil {
			return err
		}
		out, err = filterAccessible(ctx, tx, e, caller, creds)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GrantAuthorizations returns the grant's authorizations that the caller may
// read.
func (s *Service) GrantAuthorizations(ctx context.Context, callerAuthorizationID, grantID string) ([]*AuthorizationRecord, error) {
	var out []*AuthorizationRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		ids, err := e.GrantAuthorizationIDs(ctx, grantID)
		if err != nil {
			return err
		}
		auths, err := e.Authorizations(ctx, ids)
		if err != nil {
			return err
		}
		out, err = filterAccessible(ctx, tx, e, caller, auths)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CallerAccess returns the caller's live effective scope set.
func (s *Service) CallerAccess(ctx context.Context, callerAuthorizationID string) ([]string, error) {
	var out []string
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		out, err = tx.callerAccess(ctx, e, caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
