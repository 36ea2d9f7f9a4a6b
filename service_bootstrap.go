package authx

import "context"

// Bootstrap describes the initial root identity of a realm: a user, a role
// granting it scopes, and an enabled authorization to act through. Empty ids
// are minted; empty names default to "root"; empty scopes default to the
// realm-wide wildcard.
type Bootstrap struct {
	UserID          string
	RoleID          string
	AuthorizationID string
	UserName        string
	RoleName        string
	Scopes          []string
}

// BootstrapResult holds the entity ids of the bootstrapped root identity.
type BootstrapResult struct {
	UserID          string
	RoleID          string
	AuthorizationID string
}

// RealmScope returns the scope covering every resource and action of a realm.
func RealmScope(realm string) string {
	return realm + ":*.*.*.*.*.*.*.*.*:*.*.*.*.*"
}

// BootstrapRoot writes a root user, role and authorization directly through
// the store. Before the first authorization exists there is no caller to
// satisfy permission checks with, so this is the one write path that skips
// them. Use it for initial provisioning only; afterwards every change goes
// through the permission-checked operations.
func (s *Service) BootstrapRoot(ctx context.Context, in Bootstrap) (*BootstrapResult, error) {
	if in.UserName == "" {
		in.UserName = "root"
	}
	if in.RoleName == "" {
		in.RoleName = "root"
	}
	if len(in.Scopes) == 0 {
		in.Scopes = []string{RealmScope(s.realm)}
	}
	if err := validateScopePatterns(KindRole, in.Scopes); err != nil {
		return nil, err
	}

	res := &BootstrapResult{
		UserID:          in.UserID,
		RoleID:          in.RoleID,
		AuthorizationID: in.AuthorizationID,
	}

	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		var err error
		if res.UserID, err = resolveEntityID[UserRecord](ctx, tx, res.UserID); err != nil {
			return err
		}
		if res.RoleID, err = resolveEntityID[RoleRecord](ctx, tx, res.RoleID); err != nil {
			return err
		}
		if res.AuthorizationID, err = resolveEntityID[AuthorizationRecord](ctx, tx, res.AuthorizationID); err != nil {
			return err
		}

		// The root records are attributed to the authorization being created.
		meta := func() WriteMeta { return tx.writeMeta(res.AuthorizationID) }

		user := &UserRecord{
			RecordMeta: RecordMeta{EntityID: res.UserID},
			Enabled:    true,
			Type:       UserTypeHuman,
			Name:       in.UserName,
		}
		if err := writeRecord[UserRecord](ctx, tx.db, user, meta()); err != nil {
			return err
		}

		role := &RoleRecord{
			RecordMeta: RecordMeta{EntityID: res.RoleID},
			Enabled:    true,
			Name:       in.RoleName,
			Scopes:     in.Scopes,
			UserIDs:    []string{res.UserID},
		}
		if err := writeRecord[RoleRecord](ctx, tx.db, role, meta()); err != nil {
			return err
		}

		authorization := &AuthorizationRecord{
			RecordMeta: RecordMeta{EntityID: res.AuthorizationID},
			Enabled:    true,
			UserID:     res.UserID,
			Scopes:     in.Scopes,
		}
		return writeRecord[AuthorizationRecord](ctx, tx.db, authorization, meta())
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
