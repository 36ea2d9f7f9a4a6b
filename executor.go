package authx

import (
	"context"
	"strings"

	"github.com/fernandezvara/dbkit"
)

// Executor batches and memoizes reads within one transactional scope, so
// resolving a graph of related entities (a user's roles, then each role's
// scopes) issues one query per distinct id set rather than one per edge, and
// repeated reads of the same id return the same value. An Executor is owned
// exclusively by its request and must never be reused after the owning
// transaction closes; doing so would serve stale reads across
// security-relevant state changes.
type Executor struct {
	db dbkit.IDB

	users          map[string]*UserRecord
	roles          map[string]*RoleRecord
	grants         map[string]*GrantRecord
	authorizations map[string]*AuthorizationRecord
	clients        map[string]*ClientRecord
	authorities    map[string]*AuthorityRecord
	credentials    map[string]*CredentialRecord

	// relations memoizes relation lookups keyed by kind:id:relation, keeping
	// entity values immutable and safely shareable.
	relations map[string][]string
}

// NewExecutor creates an Executor bound to a transactional handle.
func NewExecutor(db dbkit.IDB) *Executor {
	return &Executor{
		db:             db,
		users:          make(map[string]*UserRecord),
		roles:          make(map[string]*RoleRecord),
		grants:         make(map[string]*GrantRecord),
		authorizations: make(map[string]*AuthorizationRecord),
		clients:        make(map[string]*ClientRecord),
		authorities:    make(map[string]*AuthorityRecord),
		credentials:    make(map[string]*CredentialRecord),
		relations:      make(map[string][]string),
	}
}

// DB returns the underlying transactional handle.
func (e *Executor) DB() dbkit.IDB {
	return e.db
}

// loadCached returns records for ids, reading only the ones missing from the
// cache in a single batched query.
func loadCached[T any, PT recordOf[T]](ctx context.Context, e *Executor, cache map[string]PT, ids []string) ([]PT, error) {
	var missing []string
	for _, id := range distinct(ids) {
		if _, ok := cache[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		recs, err := readCurrent[T, PT](ctx, e.db, missing, false)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			cache[rec.Meta().EntityID] = rec
		}
	}
	out := make([]PT, 0, len(ids))
	for _, id := range ids {
		out = append(out, cache[id])
	}
	return out, nil
}

// Users returns the current records for the given user ids.
func (e *Executor) Users(ctx context.Context, ids []string) ([]*UserRecord, error) {
	return loadCached[UserRecord](ctx, e, e.users, ids)
}

// User returns the current record for a single user id.
func (e *Executor) User(ctx context.Context, id string) (*UserRecord, error) {
	recs, err := e.Users(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// Roles returns the current records for the given role ids.
func (e *Executor) Roles(ctx context.Context, ids []string) ([]*RoleRecord, error) {
	return loadCached[RoleRecord](ctx, e, e.roles, ids)
}

// Role returns the current record for a single role id.
func (e *Executor) Role(ctx context.Context, id string) (*RoleRecord, error) {
	recs, err := e.Roles(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// Grants returns the current records for the given grant ids.
func (e *Executor) Grants(ctx context.Context, ids []string) ([]*GrantRecord, error) {
	return loadCached[GrantRecord](ctx, e, e.grants, ids)
}

// Grant returns the current record for a single grant id.
func (e *Executor) Grant(ctx context.Context, id string) (*GrantRecord, error) {
	recs, err := e.Grants(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// Authorizations returns the current records for the given authorization ids.
func (e *Executor) Authorizations(ctx context.Context, ids []string) ([]*AuthorizationRecord, error) {
	return loadCached[AuthorizationRecord](ctx, e, e.authorizations, ids)
}

// Authorization returns the current record for a single authorization id.
func (e *Executor) Authorization(ctx context.Context, id string) (*AuthorizationRecord, error) {
	recs, err := e.Authorizations(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// Clients returns the current records for the given client ids.
func (e *Executor) Clients(ctx context.Context, ids []string) ([]*ClientRecord, error) {
	return loadCached[ClientRecord](ctx, e, e.clients, ids)
}

// Client returns the current record for a single client id.
func (e *Executor) Client(ctx context.Context, id string) (*ClientRecord, error) {
	recs, err := e.Clients(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// Authorities returns the current records for the given authority ids.
func (e *Executor) Authorities(ctx context.Context, ids []string) ([]*AuthorityRecord, error) {
	return loadCached[AuthorityRecord](ctx, e, e.authorities, ids)
}

// Authority returns the current record for a single authority id.
func (e *Executor) Authority(ctx context.Context, id string) (*AuthorityRecord, error) {
	recs, err := e.Authorities(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// Credentials returns the current records for the given credential ids.
func (e *Executor) Credentials(ctx context.Context, ids []string) ([]*CredentialRecord, error) {
	return loadCached[CredentialRecord](ctx, e, e.credentials, ids)
}

// Credential returns the current record for a single credential id.
func (e *Executor) Credential(ctx context.Context, id string) (*CredentialRecord, error) {
	recs, err := e.Credentials(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

func relationKey(kind EntityKind, id, relation string) string {
	return strings.Join([]string{string(kind), id, relation}, ":")
}

// relationIDs memoizes a relation lookup for the lifetime of the executor.
func (e *Executor) relationIDs(ctx context.Context, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	if ids, ok := e.relations[key]; ok {
		return ids, nil
	}
	ids, err := load(ctx)
	if err != nil {
		return nil, err
	}
	e.relations[key] = ids
	return ids, nil
}

// UserRoleIDs returns the ids of all enabled roles the user currently
// belongs to.
func (e *Executor) UserRoleIDs(ctx context.Context, userID string) ([]string, error) {
	return e.relationIDs(ctx, relationKey(KindUser, userID, "roles"), func(ctx context.Context) ([]string, error) {
		var ids []string
		err := dbkit.WithErr1(e.db.NewRaw(
			"SELECT entity_id FROM role_records WHERE ? = ANY(user_ids) AND enabled AND replacement_record_id IS NULL",
			userID,
		).Scan(ctx, &ids), "UserRoleIDs").Err()
		if err != nil {
			return nil, err
		}
		return ids, nil
	})
}

// UserRoles returns the current records of all enabled roles the user
// belongs to.
func (e *Executor) UserRoles(ctx context.Context, userID string) ([]*RoleRecord, error) {
	ids, err := e.UserRoleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.Roles(ctx, ids)
}

// UserGrantIDs returns the ids of all grants currently belonging to the user.
func (e *Executor) UserGrantIDs(ctx context.Context, userID string) ([]string, error) {
	return e.relationIDs(ctx, relationKey(KindUser, userID, "grants"), func(ctx context.Context) ([]string, error) {
		var ids []string
		err := dbkit.WithErr1(e.db.NewRaw(
			"SELECT entity_id FROM grant_records WHERE user_id = ? AND replacement_record_id IS NULL",
			userID,
		).Scan(ctx, &ids), "UserGrantIDs").Err()
		if err != nil {
			return nil, err
		}
		return ids, nil
	})
}

// UserGrantForClient returns the user's enabled grant for a client, or nil if
// none exists. More than one enabled grant for the same user/client pair is a
// fatal invariant violation, not a user-facing error.
func (e *Executor) UserGrantForClient(ctx context.Context, userID, clientID string) (*GrantRecord, error) {
	ids, err := e.relationIDs(ctx, relationKey(KindUser, userID, "grant-for-client:"+clientID), func(ctx context.Context) ([]string, error) {
		var ids []string
		err := dbkit.WithErr1(e.db.NewRaw(
			"SELECT entity_id FROM grant_records WHERE user_id = ? AND client_id = ? AND enabled AND replacement_record_id IS NULL",
			userID, clientID,
		).Scan(ctx, &ids), "UserGrantForClient").Err()
		if err != nil {
			return nil, err
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	if len(ids) > 1 {
		return nil, NewError(ErrInvariant, "multiple enabled grants for the same user and client").
			WithEntity(KindGrant, ids[0])
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return e.Grant(ctx, ids[0])
}

// UserCredentialIDs returns the ids of all credentials currently belonging to
// the user.
func (e *Executor) UserCredentialIDs(ctx context.Context, userID string) ([]string, error) {
	return e.relationIDs(ctx, relationKey(KindUser, userID, "credentials"), func(ctx context.Context) ([]string, error) {
		var ids []string
		err := dbkit.WithErr1(e.db.NewRaw(
			"SELECT entity_id FROM credential_records WHERE user_id = ? AND replacement_record_id IS NULL",
			userID,
		).Scan(ctx, &ids), "UserCredentialIDs").Err()
		if err != nil {
			return nil, err
		}
		return ids, nil
	})
}

// AuthorityCredentialIDs returns the ids of all credentials currently
// belonging to the authority.
func (e *Executor) AuthorityCredentialIDs(ctx context.Context, authorityID string) ([]string, error) {
	return e.relationIDs(ctx, relationKey(KindAuthority, authorityID, "credentials"), func(ctx context.Context) ([]string, error) {
		var ids []string
		err := dbkit.WithErr1(e.db.NewRaw(
			"SELECT entity_id FROM credential_records WHERE authority_id = ? AND replacement_record_id IS NULL",
			authorityID,
		).Scan(ctx, &ids), "AuthorityCredentialIDs").Err()
		if err != nil {
			return nil, err
		}
		return ids, nil
	})
}

// CredentialByAuthorityAndExternalUserID returns the enabled credential
// binding an authority's external user id, or nil if none exists. More than
// one is a fatal invariant violation.
func (e *Executor) CredentialByAuthorityAndExternalUserID(ctx context.Context, authorityID, authorityUserID string) (*CredentialRecord, error) {
	var ids []string
	err := dbkit.WithErr1(e.db.NewRaw(
		"SELECT entity_id FROM credential_records WHERE authority_id = ? AND authority_user_id = ? AND enabled AND replacement_record_id IS NULL",
		authorityID, authorityUserID,
	).Scan(ctx, &ids), "CredentialByAuthorityAndExternalUserID").Err()
	if err != nil {
		return nil, err
	}
	if len(ids) > 1 {
		return nil, NewError(ErrInvariant, "multiple enabled credentials for the same authority and external user id").
			WithEntity(KindCredential, ids[0])
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return e.Credential(ctx, ids[0])
}

// GrantAuthorizationIDs returns the ids of all authorizations currently
// belonging to the grant.
func (e *Executor) GrantAuthorizationIDs(ctx context.Context, grantID string) ([]string, error) {
	return e.relationIDs(ctx, relationKey(KindGrant, grantID, "authorizations"), func(ctx context.Context) ([]string, error) {
		var ids []string
		err := dbkit.WithErr1(e.db.NewRaw(
			"SELECT entity_id FROM authorization_records WHERE grant_id = ? AND replacement_record_id IS NULL",
			grantID,
		).Scan(ctx, &ids), "GrantAuthorizationIDs").Err()
		if err != nil {
			return nil, err
		}
		return ids, nil
	})
}
