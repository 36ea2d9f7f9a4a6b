package authx

import "context"

// accessCheckedRecord is any record that can answer access questions.
type accessCheckedRecord interface {
	entityRecord
	IsAccessibleBy(ctx context.Context, e *Executor, realm string, caller *AuthorizationRecord, action Action) (bool, error)
}

// requireAccessible fails with ErrForbidden unless the caller may perform
// the action on the record.
func (s *Service) requireAccessible(ctx context.Context, e *Executor, caller *AuthorizationRecord, rec accessCheckedRecord, action Action) error {
	ok, err := rec.IsAccessibleBy(ctx, e, s.realm, caller, action)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(ErrForbidden, "caller's access does not cover this operation").
			WithEntity(rec.EntityKind(), rec.Meta().EntityID).
			WithScope(FormatScope(s.realm, ResourceRef{Kind: rec.EntityKind()}, action))
	}
	return nil
}

// requireCreateAccess fails with ErrForbidden unless the caller may create
// entities matching the reference. Creation is checked against the blank
// reference slots rather than the minted id, since no scope can name an id
// that does not exist yet.
func (s *Service) requireCreateAccess(ctx context.Context, e *Executor, caller *AuthorizationRecord, ref ResourceRef) error {
	ok, err := accessible(ctx, e, s.realm, caller, ref, ActionWriteBasic)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(ErrForbidden, "caller's access does not cover creating this entity").
			WithScope(FormatScope(s.realm, ref, ActionWriteBasic))
	}
	return nil
}

// callerAccess resolves the caller's live access set.
func (s *Service) callerAccess(ctx context.Context, e *Executor, caller *AuthorizationRecord) ([]string, error) {
	v, err := e.ContextValuesFor(ctx, caller)
	if err != nil {
		return nil, err
	}
	return caller.Access(ctx, e, v)
}

// validateScopePatterns rejects scope lists containing anything outside the
// pattern grammar.
func validateScopePatterns(kind EntityKind, scopes []string) error {
	for _, scope := range scopes {
		if !IsValidScopePattern(scope) {
			return NewError(ErrValidation, "scope is not a valid pattern").
				WithEntity(kind, "").
				WithScope(scope)
		}
	}
	return nil
}

// resolveEntityID returns the explicit id after probing it for collisions,
// or mints a fresh one.
func resolveEntityID[T any, PT recordOf[T]](ctx context.Context, s *Service, id string) (string, error) {
	if id == "" {
		return NewEntityID(), nil
	}
	if err := probeEntityID[T, PT](ctx, s.db, id); err != nil {
		return "", err
	}
	return id, nil
}

// delegate applies the administration delegations for a newly created
// entity, bounded by the creator's live access.
func (s *Service) delegate(ctx context.Context, e *Executor, caller *AuthorizationRecord, ref ResourceRef, delegations []AdministrationDelegation) error {
	if len(delegations) == 0 {
		return nil
	}
	creatorAccess, err := s.callerAccess(ctx, e, caller)
	if err != nil {
		return err
	}
	meta := s.writeMeta(caller.EntityID)
	return applyAdministrationDelegations(ctx, e, s.realm, ref, caller, creatorAccess, delegations, meta)
}
