package authx

import "context"

// Administration-scope bounding: when a caller creates an entity it may
// delegate administration of that entity to roles, but only ever a subset of
// what the caller itself possesses. The catalog below enumerates, per entity
// kind, the meaningful administration actions; the deliverable scopes are the
// catalog formatted against the new entity's reference and intersected with
// the creator's live access.

// administrationActions lists the administration capabilities that exist for
// each entity kind. Slots a kind has no data for (a user has no secrets) are
// absent from its catalog.
var administrationActions = map[EntityKind][]Action{
	KindAuthority: {
		{Basic: "r"},
		{Basic: "r", Details: "r"},
		{Basic: "w"},
		{Basic: "w", Details: "w"},
		{Basic: "*", Details: "*"},
	},
	KindAuthorization: {
		{Basic: "r"},
		{Basic: "r", Scopes: "r"},
		{Basic: "r", Secrets: "r"},
		{Basic: "r", Scopes: "r", Secrets: "r"},
		{Basic: "w"},
		{Basic: "w", Scopes: "w"},
		{Basic: "w", Secrets: "w"},
		{Basic: "w", Scopes: "w", Secrets: "w"},
		{Basic: "*", Scopes: "*", Secrets: "*"},
	},
	KindClient: {
		{Basic: "r"},
		{Basic: "r", Secrets: "r"},
		{Basic: "w"},
		{Basic: "w", Secrets: "w"},
		{Basic: "*", Secrets: "*"},
	},
	KindCredential: {
		{Basic: "r"},
		{Basic: "r", Details: "r"},
		{Basic: "w"},
		{Basic: "w", Details: "w"},
		{Basic: "*", Details: "*"},
	},
	KindGrant: {
		{Basic: "r"},
		{Basic: "r", Scopes: "r"},
		{Basic: "r", Secrets: "r"},
		{Basic: "r", Scopes: "r", Secrets: "r"},
		{Basic: "w"},
		{Basic: "w", Scopes: "w"},
		{Basic: "w", Secrets: "w"},
		{Basic: "w", Scopes: "w", Secrets: "w"},
		{Basic: "*", Scopes: "*", Secrets: "*"},
	},
	KindRole: {
		{Basic: "r"},
		{Basic: "r", Scopes: "r"},
		{Basic: "r", Users: "r"},
		{Basic: "r", Scopes: "r", Users: "r"},
		{Basic: "w"},
		{Basic: "w", Scopes: "w"},
		{Basic: "w", Users: "w"},
		{Basic: "w", Scopes: "w", Users: "w"},
		{Basic: "*", Scopes: "*", Users: "*"},
	},
	KindUser: {
		{Basic: "r"},
		{Basic: "w"},
		{Basic: "*"},
	},
}

// AdministrationScopes returns every administration scope that exists for the
// referenced entity, one per catalog action.
func AdministrationScopes(realm string, ref ResourceRef) []string {
	actions := administrationActions[ref.Kind]
	out := make([]string, 0, len(actions))
	for _, action := range actions {
		out = append(out, FormatScope(realm, ref, action))
	}
	return out
}

// AdministrationDelegation asks that a role receive administration scopes
// over a newly created entity.
type AdministrationDelegation struct {
	RoleID string
	Scopes []string
}

// boundAdministrationScopes computes the scopes a delegation may actually
// deliver: the requested scopes, cut down to the entity's administration
// catalog, cut down again to what the creator currently possesses. The
// creator can never hand out more than it holds.
func boundAdministrationScopes(realm string, ref ResourceRef, creatorAccess, requested []string) []string {
	possible := GetIntersection(AdministrationScopes(realm, ref), creatorAccess)
	return GetIntersection(possible, requested)
}

// applyAdministrationDelegations grants each delegated role its bounded
// administration scopes over the new entity. Each role's current record is
// locked for the rest of the transaction, so two creations delegating to the
// same role serialize rather than losing one side's scopes.
func applyAdministrationDelegations(ctx context.Context, e *Executor, realm string, ref ResourceRef, caller *AuthorizationRecord, creatorAccess []string, delegations []AdministrationDelegation, now WriteMeta) error {
	for _, d := range delegations {
		role, err := readCurrentOne[RoleRecord](ctx, e.DB(), d.RoleID, true)
		if err != nil {
			return err
		}
		ok, err := role.IsAccessibleBy(ctx, e, realm, caller, Action{Basic: "w", Scopes: "w"})
		if err != nil {
			return err
		}
		if !ok {
			return NewError(ErrForbidden, "caller may not modify the scopes of the delegated role").
				WithEntity(KindRole, d.RoleID)
		}
		granted := boundAdministrationScopes(realm, ref, creatorAccess, d.Scopes)
		if len(granted) == 0 {
			continue
		}
		next := *role
		next.Scopes = Simplify(append(append([]string{}, role.Scopes...), granted...))
		meta := now
		meta.RecordID = newRecordID()
		if err := writeRecord[RoleRecord](ctx, e.DB(), &next, meta); err != nil {
			return err
		}
	}
	return nil
}
