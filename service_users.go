package authx

import "context"

// CreateUser describes a user to create. Leave ID empty to have one minted.
type CreateUser struct {
	ID      string
	Enabled bool
	Type    UserType
	Name    string

	// Administration delegates administration of the new user to roles,
	// bounded by what the creator itself possesses.
	Administration []AdministrationDelegation
}

// UpdateUser describes changes to a user. Nil fields keep their current
// value.
type UpdateUser struct {
	ID      string
	Enabled *bool
	Type    *UserType
	Name    *string
}

// CreateUser creates a user. The caller needs write access to users at
// large; an explicit id that is already in use fails with ErrConflict.
func (s *Service) CreateUser(ctx context.Context, callerAuthorizationID string, in CreateUser) (*UserRecord, error) {
	if in.Type != UserTypeHuman && in.Type != UserTypeBot {
		return nil, NewError(ErrValidation, "user type must be human or bot").WithEntity(KindUser, in.ID)
	}

	var out *UserRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		if err := tx.requireCreateAccess(ctx, e, caller, ResourceRef{Kind: KindUser}); err != nil {
			return err
		}

		id, err := resolveEntityID[UserRecord](ctx, tx, in.ID)
		if err != nil {
			return err
		}
		rec := &UserRecord{
			RecordMeta: RecordMeta{EntityID: id},
			Enabled:    in.Enabled,
			Type:       in.Type,
			Name:       in.Name,
		}
		if err := writeRecord[UserRecord](ctx, tx.db, rec, tx.writeMeta(caller.EntityID)); err != nil {
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

// UpdateUser replaces the user's current record with an updated one. The
// previous record stays in history.
func (s *Service) UpdateUser(ctx context.Context, callerAuthorizationID string, in UpdateUser) (*UserRecord, error) {
	var out *UserRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := readCurrentOne[UserRecord](ctx, tx.db, in.ID, true)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, current, ActionWriteBasic); err != nil {
			return err
		}

		next := *current
		if in.Enabled != nil {
			next.Enabled = *in.Enabled
		}
		if in.Type != nil {
			if *in.Type != UserTypeHuman && *in.Type != UserTypeBot {
				return NewError(ErrValidation, "user type must be human or bot").WithEntity(KindUser, in.ID)
			}
			next.Type = *in.Type
		}
		if in.Name != nil {
			next.Name = *in.Name
		}
		if err := writeRecord[UserRecord](ctx, tx.db, &next, tx.writeMeta(caller.EntityID)); err != nil {
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

// ReadUser returns the user's current record. The caller needs read access
// to the user.
func (s *Service) ReadUser(ctx context.Context, callerAuthorizationID, id string) (*UserRecord, error) {
	var out *UserRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		rec, err := e.User(ctx, id)
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

// ReadUsers returns the current records of several users at once. Any id
// the caller may not read fails the whole call.
func (s *Service) ReadUsers(ctx context.Context, callerAuthorizationID string, ids []string) ([]*UserRecord, error) {
	var out []*UserRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		recs, err := e.Users(ctx, ids)
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

// UserRecords returns the user's record history, newest first. Reading
// history requires the same access as reading the current record.
func (s *Service) UserRecords(ctx context.Context, callerAuthorizationID, id string, filter RecordFilter) ([]*UserRecord, error) {
	var out []*UserRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := e.User(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, current, ActionReadBasic); err != nil {
			return err
		}
		out, err = recordHistory[UserRecord](ctx, tx.db, id, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
