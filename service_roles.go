package authx

import "context"

// CreateRole describes a role to create.
type CreateRole struct {
	ID          string
	Enabled     bool
	Name        string
	Description string
	Scopes      []string
	UserIDs     []string

	Administration []AdministrationDelegation
}

// UpdateRole describes changes to a role. Nil fields keep their current
// value. Changing Scopes requires scope-write access and changing UserIDs
// requires user-write access on the role, on top of basic write.
type UpdateRole struct {
	ID          string
	Enabled     *bool
	Name        *string
	Description *string
	Scopes      *[]string
	UserIDs     *[]string
}

// CreateRole creates a role. Role scopes may contain wildcards and template
// placeholders; anything outside the pattern grammar is rejected.
func (s *Service) CreateRole(ctx context.Context, callerAuthorizationID string, in CreateRole) (*RoleRecord, error) {
	if err := validateScopePatterns(KindRole, in.Scopes); err != nil {
		return nil, err
	}

	var out *RoleRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		if err := tx.requireCreateAccess(ctx, e, caller, ResourceRef{Kind: KindRole}); err != nil {
			return err
		}

		// Granting scopes through a new role is delegation: the creator can
		// only hand out what it holds.
		if len(in.Scopes) > 0 {
			creatorAccess, err := tx.callerAccess(ctx, e, caller)
			if err != nil {
				return err
			}
			if !IsSuperset(creatorAccess, in.Scopes...) {
				return NewError(ErrForbidden, "role scopes exceed the creator's own access").
					WithEntity(KindRole, in.ID)
			}
		}

		id, err := resolveEntityID[RoleRecord](ctx, tx, in.ID)
		if err != nil {
			return err
		}
		rec := &RoleRecord{
			RecordMeta:  RecordMeta{EntityID: id},
			Enabled:     in.Enabled,
			Name:        in.Name,
			Description: in.Description,
			Scopes:      Simplify(in.Scopes),
			UserIDs:     distinct(in.UserIDs),
		}
		if err := writeRecord[RoleRecord](ctx, tx.db, rec, tx.writeMeta(caller.EntityID)); err != nil {
			return err
		}
		if err := tx.delegate(ctx, e, caller, rec.ResourceRef(), in.Administration); err != nil {
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

// UpdateRole replaces the role's current record with an updated one.
func (s *Service) UpdateRole(ctx context.Context, callerAuthorizationID string, in UpdateRole) (*RoleRecord, error) {
	if in.Scopes != nil {
		if err := validateScopePatterns(KindRole, *in.Scopes); err != nil {
			return nil, err
		}
	}

	var out *RoleRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := readCurrentOne[RoleRecord](ctx, tx.db, in.ID, true)
		if err != nil {
			return err
		}

		action := ActionWriteBasic
		if in.Scopes != nil {
			action.Scopes = "w"
		}
		if in.UserIDs != nil {
			action.Users = "w"
		}
		if err := tx.requireAccessible(ctx, e, caller, current, action); err != nil {
			return err
		}

		next := *current
		if in.Enabled != nil {
			next.Enabled = *in.Enabled
		}
		if in.Name != nil {
			next.Name = *in.Name
		}
		if in.Description != nil {
			next.Description = *in.Description
		}
		if in.Scopes != nil {
			creatorAccess, err := tx.callerAccess(ctx, e, caller)
			if err != nil {
				return err
			}
			for _, scope := range *in.Scopes {
				if !IsSuperset(current.Scopes, scope) && !IsSuperset(creatorAccess, scope) {
					return NewError(ErrForbidden, "added role scope exceeds the caller's own access").
						WithEntity(KindRole, in.ID).
						WithScope(scope)
				}
			}
			next.Scopes = Simplify(*in.Scopes)
		}
		if in.UserIDs != nil {
			next.UserIDs = distinct(*in.UserIDs)
		}
		if err := writeRecord[RoleRecord](ctx, tx.db, &next, tx.writeMeta(caller.EntityID)); err != nil {
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

// ReadRole returns the role's current record.
func (s *Service) ReadRole(ctx context.Context, callerAuthorizationID, id string) (*RoleRecord, error) {
	var out *RoleRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		rec, err := e.Role(ctx, id)
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

// ReadRoles returns the current records of several roles at once.
func (s *Service) ReadRoles(ctx context.Context, callerAuthorizationID string, ids []string) ([]*RoleRecord, error) {
	var out []*RoleRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		recs, err := e.Roles(ctx, ids)
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

// RoleRecords returns the role's record history, newest first.
func (s *Service) RoleRecords(ctx context.Context, callerAuthorizationID, id string, filter RecordFilter) ([]*RoleRecord, error) {
	var out []*RoleRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := e.Role(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, current, ActionReadBasic); err != nil {
			return err
		}
		out, err = recordHistory[RoleRecord](ctx, tx.db, id, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DelegateAdministration grants roles administration scopes over an existing
// entity, bounded by the caller's own access.
func (s *Service) DelegateAdministration(ctx context.Context, callerAuthorizationID string, ref ResourceRef, delegations []AdministrationDelegation) error {
	return s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		return tx.delegate(ctx, e, caller, ref, delegations)
	})
}
