package authx

import "context"

// CreateAuthorization describes an authorization to create. GrantID may be
// empty for authorizations issued directly against a user.
type CreateAuthorization struct {
	ID      string
	Enabled bool
	UserID  string
	GrantID string
	Scopes  []string

	Administration []AdministrationDelegation
}

// UpdateAuthorization describes changes to an authorization. Nil fields keep
// their current value.
type UpdateAuthorization struct {
	ID      string
	Enabled *bool
	Scopes  *[]string
}

// CreateAuthorization creates an authorization within a grant, or directly
// within a user when GrantID is empty. A grant-bound authorization must name
// the grant's own user.
func (s *Service) CreateAuthorization(ctx context.Context, callerAuthorizationID string, in CreateAuthorization) (*AuthorizationRecord, error) {
	if in.UserID == "" {
		return nil, NewError(ErrValidation, "authorization requires a user id").WithEntity(KindAuthorization, in.ID)
	}
	if err := validateScopePatterns(KindAuthorization, in.Scopes); err != nil {
		return nil, err
	}

	var out *AuthorizationRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}

		ref := ResourceRef{Kind: KindAuthorization, GrantID: in.GrantID, UserID: in.UserID}
		if in.GrantID != "" {
			grant, err := e.Grant(ctx, in.GrantID)
			if err != nil {
				return err
			}
			if grant.UserID != in.UserID {
				return NewError(ErrValidation, "authorization user does not match the grant's user").
					WithEntity(KindAuthorization, in.ID)
			}
			ref.ClientID = grant.ClientID
		} else if _, err := e.User(ctx, in.UserID); err != nil {
			return err
		}
		if err := tx.requireCreateAccess(ctx, e, caller, ref); err != nil {
			return err
		}

		id, err := resolveEntityID[AuthorizationRecord](ctx, tx, in.ID)
		if err != nil {
			return err
		}
		rec := &AuthorizationRecord{
			RecordMeta: RecordMeta{EntityID: id},
			Enabled:    in.Enabled,
			UserID:     in.UserID,
			GrantID:    in.GrantID,
			Scopes:     Simplify(in.Scopes),
		}
		if err := writeRecord[AuthorizationRecord](ctx, tx.db, rec, tx.writeMeta(caller.EntityID)); err != nil {
			return err
		}
		delegationRef := rec.ResourceRef()
		delegationRef.ClientID = ref.ClientID
		if err := tx.delegate(ctx, e, caller, delegationRef, in.Administration); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAuthorization replaces the authorization's current record with an
// updated one. Disabling an authorization revokes it immediately; the next
// access resolution sees the new record.
func (s *Service) UpdateAuthorization(ctx context.Context, callerAuthorizationID string, in UpdateAuthorization) (*AuthorizationRecord, error) {
	if in.Scopes != nil {
		if err := validateScopePatterns(KindAuthorization, *in.Scopes); err != nil {
			return nil, err
		}
	}

	var out *AuthorizationRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := readCurrentOne[AuthorizationRecord](ctx, tx.db, in.ID, true)
		if err != nil {
			return err
		}

		action := ActionWriteBasic
		if in.Scopes != nil {
			action.Scopes = "w"
		}
		if err := tx.requireAccessible(ctx, e, caller, current, action); err != nil {
			return err
		}

		next := *current
		if in.Enabled != nil {
			next.Enabled = *in.Enabled
		}
		if in.Scopes != nil {
			next.Scopes = Simplify(*in.Scopes)
		}
		if err := writeRecord[AuthorizationRecord](ctx, tx.db, &next, tx.writeMeta(caller.EntityID)); err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadAuthorization returns the authorization's current record.
func (s *Service) ReadAuthorization(ctx context.Context, callerAuthorizationID, id string) (*AuthorizationRecord, error) {
	var out *AuthorizationRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		rec, err := e.Authorization(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, rec, ActionReadBasic); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadAuthorizations returns the current records of several authorizations
// at once.
func (s *Service) ReadAuthorizations(ctx context.Context, callerAuthorizationID string, ids []string) ([]*AuthorizationRecord, error) {
	var out []*AuthorizationRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		recs, err := e.Authorizations(ctx, ids)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := tx.requireAccessible(ctx, e, caller, rec, ActionReadBasic); err != nil {
				return err
			}
		}
		out = recs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AuthorizationRecords returns the authorization's record history, newest
// first.
func (s *Service) AuthorizationRecords(ctx context.Context, callerAuthorizationID, id string, filter RecordFilter) ([]*AuthorizationRecord, error) {
	var out []*AuthorizationRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := e.Authorization(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, current, ActionReadBasic); err != nil {
			return err
		}
		out, err = recordHistory[AuthorizationRecord](ctx, tx.db, id, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Can reports whether the caller's live access covers every one of the given
// scopes. This is the outward-facing permission predicate.
func (s *Service) Can(ctx context.Context, callerAuthorizationID string, scopes ...string) (bool, error) {
	if !AreValidScopeLiterals(scopes) {
		return false, NewError(ErrValidation, "required scopes must be literals")
	}
	checker, err := s.GetChecker(ctx, callerAuthorizationID)
	if err != nil {
		return false, err
	}
	return checker.Can(ctx, scopes...)
}
