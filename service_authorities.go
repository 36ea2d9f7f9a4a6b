package authx

import "context"

// CreateAuthority describes an authority to create. Its kind must have a
// registered strategy.
type CreateAuthority struct {
	ID          string
	Enabled     bool
	Kind        AuthorityKind
	Name        string
	Description string
	Details     map[string]any

	Administration []AdministrationDelegation
}

// UpdateAuthority describes changes to an authority. Nil fields keep their
// current value. Changing Details requires detail-write access. The kind is
// immutable; strategies are bound at startup.
type UpdateAuthority struct {
	ID          string
	Enabled     *bool
	Name        *string
	Description *string
	Details     *map[string]any
}

// CreateCredential describes a credential to create, binding a user to an
// authority's external identity.
type CreateCredential struct {
	ID              string
	Enabled         bool
	AuthorityID     string
	UserID          string
	AuthorityUserID string
	Details         map[string]any

	Administration []AdministrationDelegation
}

// UpdateCredential describes changes to a credential. Nil fields keep their
// current value.
type UpdateCredential struct {
	ID      string
	Enabled *bool
	Details *map[string]any
}

// CreateAuthority creates an authority.
func (s *Service) CreateAuthority(ctx context.Context, callerAuthorizationID string, in CreateAuthority) (*AuthorityRecord, error) {
	if _, err := s.strategies.For(in.Kind); err != nil {
		return nil, err
	}

	var out *AuthorityRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		if err := tx.requireCreateAccess(ctx, e, caller, ResourceRef{Kind: KindAuthority}); err != nil {
			return err
		}

		id, err := resolveEntityID[AuthorityRecord](ctx, tx, in.ID)
		if err != nil {
			return err
		}
		rec := &AuthorityRecord{
			RecordMeta:  RecordMeta{EntityID: id},
			Enabled:     in.Enabled,
			Kind:        in.Kind,
			Name:        in.Name,
			Description: in.Description,
			Details:     in.Details,
		}
		if err := writeRecord[AuthorityRecord](ctx, tx.db, rec, tx.writeMeta(caller.EntityID)); err != nil {
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

// UpdateAuthority replaces the authority's current record with an updated
// one.
func (s *Service) UpdateAuthority(ctx context.Context, callerAuthorizationID string, in UpdateAuthority) (*AuthorityRecord, error) {
	var out *AuthorityRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := readCurrentOne[AuthorityRecord](ctx, tx.db, in.ID, true)
		if err != nil {
			return err
		}

		action := ActionWriteBasic
		if in.Details != nil {
			action.Details = "w"
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
		if in.Details != nil {
			next.Details = *in.Details
		}
		if err := writeRecord[AuthorityRecord](ctx, tx.db, &next, tx.writeMeta(caller.EntityID)); err != nil {
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

// ReadAuthority returns the authority's current record.
func (s *Service) ReadAuthority(ctx context.Context, callerAuthorizationID, id string) (*AuthorityRecord, error) {
	var out *AuthorityRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		rec, err := e.Authority(ctx, id)
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

// ReadAuthorities returns the current records of several authorities at
// once.
func (s *Service) ReadAuthorities(ctx context.Context, callerAuthorizationID string, ids []string) ([]*AuthorityRecord, error) {
	var out []*AuthorityRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		recs, err := e.Authorities(ctx, ids)
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

// AuthorityRecords returns the authority's record history, newest first.
func (s *Service) AuthorityRecords(ctx context.Context, callerAuthorizationID, id string, filter RecordFilter) ([]*AuthorityRecord, error) {
	var out []*AuthorityRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := e.Authority(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, current, ActionReadBasic); err != nil {
			return err
		}
		out, err = recordHistory[AuthorityRecord](ctx, tx.db, id, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCredential creates a credential. At most one enabled credential may
// bind an authority's external user id; a second one fails with ErrConflict.
func (s *Service) CreateCredential(ctx context.Context, callerAuthorizationID string, in CreateCredential) (*CredentialRecord, error) {
	if in.AuthorityID == "" || in.UserID == "" || in.AuthorityUserID == "" {
		return nil, NewError(ErrValidation, "credential requires an authority id, a user id and an external user id").
			WithEntity(KindCredential, in.ID)
	}

	var out *CredentialRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		if err := tx.requireCreateAccess(ctx, e, caller, ResourceRef{Kind: KindCredential, AuthorityID: in.AuthorityID, UserID: in.UserID}); err != nil {
			return err
		}

		// The authority must exist and have a usable strategy; the user must
		// exist.
		strategy, _, err := tx.strategies.ForAuthority(ctx, e, in.AuthorityID)
		if err != nil {
			return err
		}
		if _, err := e.User(ctx, in.UserID); err != nil {
			return err
		}

		if in.Enabled {
			existing, err := strategy.CredentialByExternalUserID(ctx, e, in.AuthorityID, in.AuthorityUserID)
			if err != nil {
				return err
			}
			if existing != nil {
				return NewError(ErrConflict, "an enabled credential already binds this external user id").
					WithEntity(KindCredential, existing.EntityID)
			}
		}

		id, err := resolveEntityID[CredentialRecord](ctx, tx, in.ID)
		if err != nil {
			return err
		}
		rec := &CredentialRecord{
			RecordMeta:      RecordMeta{EntityID: id},
			Enabled:         in.Enabled,
			AuthorityID:     in.AuthorityID,
			UserID:          in.UserID,
			AuthorityUserID: in.AuthorityUserID,
			Details:         in.Details,
		}
		if err := writeRecord[CredentialRecord](ctx, tx.db, rec, tx.writeMeta(caller.EntityID)); err != nil {
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

// UpdateCredential replaces the credential's current record with an updated
// one.
func (s *Service) UpdateCredential(ctx context.Context, callerAuthorizationID string, in UpdateCredential) (*CredentialRecord, error) {
	var out *CredentialRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := readCurrentOne[CredentialRecord](ctx, tx.db, in.ID, true)
		if err != nil {
			return err
		}

		action := ActionWriteBasic
		if in.Details != nil {
			action.Details = "w"
		}
		if err := tx.requireAccessible(ctx, e, caller, current, action); err != nil {
			return err
		}

		next := *current
		if in.Enabled != nil {
			next.Enabled = *in.Enabled
		}
		if in.Details != nil {
			next.Details = *in.Details
		}

		// Re-enabling must not produce a second enabled binding.
		if !current.Enabled && next.Enabled {
			existing, err := e.CredentialByAuthorityAndExternalUserID(ctx, next.AuthorityID, next.AuthorityUserID)
			if err != nil {
				return err
			}
			if existing != nil && existing.EntityID != next.EntityID {
				return NewError(ErrConflict, "an enabled credential already binds this external user id").
					WithEntity(KindCredential, existing.EntityID)
			}
		}

		if err := writeRecord[CredentialRecord](ctx, tx.db, &next, tx.writeMeta(caller.EntityID)); err != nil {
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

// ReadCredential returns the credential's current record.
func (s *Service) ReadCredential(ctx context.Context, callerAuthorizationID, id string) (*CredentialRecord, error) {
	var out *CredentialRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		rec, err := e.Credential(ctx, id)
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

// ReadCredentials returns the current records of several credentials at
// once.
func (s *Service) ReadCredentials(ctx context.Context, callerAuthorizationID string, ids []string) ([]*CredentialRecord, error) {
	var out []*CredentialRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		recs, err := e.Credentials(ctx, ids)
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

// CredentialRecords returns the credential's record history, newest first.
func (s *Service) CredentialRecords(ctx context.Context, callerAuthorizationID, id string, filter RecordFilter) ([]*CredentialRecord, error) {
	var out []*CredentialRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := e.Credential(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, current, ActionReadBasic); err != nil {
			return err
		}
		out, err = recordHistory[CredentialRecord](ctx, tx.db, id, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
