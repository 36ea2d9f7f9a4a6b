package authx

import "context"

// CreateGrant describes a grant to create.
type CreateGrant struct {
	ID       string
	Enabled  bool
	UserID   string
	ClientID string
	Secrets  []string
	Codes    []string
	Scopes   []string

	Administration []AdministrationDelegation
}

// UpdateGrant describes changes to a grant. Nil fields keep their current
// value. Changing Scopes requires scope-write access and changing Secrets or
// Codes requires secret-write access on the grant, on top of basic write.
type UpdateGrant struct {
	ID      string
	Enabled *bool
	Secrets *[]string
	Codes   *[]string
	Scopes  *[]string
}

// CreateGrant creates a grant binding a user to a client. At most one
// enabled grant may exist per user and client pair; a second one fails with
// ErrConflict.
func (s *Service) CreateGrant(ctx context.Context, callerAuthorizationID string, in CreateGrant) (*GrantRecord, error) {
	if in.UserID == "" || in.ClientID == "" {
		return nil, NewError(ErrValidation, "grant requires a user id and a client id").WithEntity(KindGrant, in.ID)
	}
	if err := validateScopePatterns(KindGrant, in.Scopes); err != nil {
		return nil, err
	}

	var out *GrantRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		if err := tx.requireCreateAccess(ctx, e, caller, ResourceRef{Kind: KindGrant, ClientID: in.ClientID, UserID: in.UserID}); err != nil {
			return err
		}

		// The user and client must exist.
		if _, err := e.User(ctx, in.UserID); err != nil {
			return err
		}
		if _, err := e.Client(ctx, in.ClientID); err != nil {
			return err
		}

		if in.Enabled {
			existing, err := e.UserGrantForClient(ctx, in.UserID, in.ClientID)
			if err != nil {
				return err
			}
			if existing != nil {
				return NewError(ErrConflict, "an enabled grant already exists for this user and client").
					WithEntity(KindGrant, existing.EntityID)
			}
		}

		id, err := resolveEntityID[GrantRecord](ctx, tx, in.ID)
		if err != nil {
			return err
		}
		rec := &GrantRecord{
			RecordMeta: RecordMeta{EntityID: id},
			Enabled:    in.Enabled,
			UserID:     in.UserID,
			ClientID:   in.ClientID,
			Secrets:    in.Secrets,
			Codes:      in.Codes,
			Scopes:     Simplify(in.Scopes),
		}
		if err := writeRecord[GrantRecord](ctx, tx.db, rec, tx.writeMeta(caller.EntityID)); err != nil {
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

// UpdateGrant replaces the grant's current record with an updated one. The
// bound user and client never change; revoke the grant and create a new one
// instead.
func (s *Service) UpdateGrant(ctx context.Context, callerAuthorizationID string, in UpdateGrant) (*GrantRecord, error) {
	if in.Scopes != nil {
		if err := validateScopePatterns(KindGrant, *in.Scopes); err != nil {
			return nil, err
		}
	}

	var out *GrantRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := readCurrentOne[GrantRecord](ctx, tx.db, in.ID, true)
		if err != nil {
			return err
		}

		action := ActionWriteBasic
		if in.Scopes != nil {
			action.Scopes = "w"
		}
		if in.Secrets != nil || in.Codes != nil {
			action.Secrets = "w"
		}
		if err := tx.requireAccessible(ctx, e, caller, current, action); err != nil {
			return err
		}

		next := *current
		if in.Enabled != nil {
			next.Enabled = *in.Enabled
		}
		if in.Secrets != nil {
			next.Secrets = *in.Secrets
		}
		if in.Codes != nil {
			next.Codes = *in.Codes
		}
		if in.Scopes != nil {
			next.Scopes = Simplify(*in.Scopes)
		}

		// Re-enabling must not produce a second enabled grant for the pair.
		if !current.Enabled && next.Enabled {
			existing, err := e.UserGrantForClient(ctx, next.UserID, next.ClientID)
			if err != nil {
				return err
			}
			if existing != nil && existing.EntityID != next.EntityID {
				return NewError(ErrConflict, "an enabled grant already exists for this user and client").
					WithEntity(KindGrant, existing.EntityID)
			}
		}

		if err := writeRecord[GrantRecord](ctx, tx.db, &next, tx.writeMeta(caller.EntityID)); err != nil {
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

// ReadGrant returns the grant's current record.
func (s *Service) ReadGrant(ctx context.Context, callerAuthorizationID, id string) (*GrantRecord, error) {
	var out *GrantRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		rec, err := e.Grant(ctx, id)
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

// ReadGrants returns the current records of several grants at once.
func (s *Service) ReadGrants(ctx context.Context, callerAuthorizationID string, ids []string) ([]*GrantRecord, error) {
	var out []*GrantRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		recs, err := e.Grants(ctx, ids)
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

// GrantRecords returns the grant's record history, newest first.
func (s *Service) GrantRecords(ctx context.Context, callerAuthorizationID, id string, filter RecordFilter) ([]*GrantRecord, error) {
	var out []*GrantRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := e.Grant(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, current, ActionReadBasic); err != nil {
			return err
		}
		out, err = recordHistory[GrantRecord](ctx, tx.db, id, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
