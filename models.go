package authx

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// EntityKind identifies one of the seven entity kinds managed by the store.
type EntityKind string

const (
	KindAuthority     EntityKind = "authority"
	KindAuthorization EntityKind = "authorization"
	KindClient        EntityKind = "client"
	KindCredential    EntityKind = "credential"
	KindGrant         EntityKind = "grant"
	KindRole          EntityKind = "role"
	KindUser          EntityKind = "user"
)

// entityTables maps each kind to its entity-id table and record table.
var entityTables = map[EntityKind]struct{ entity, record string }{
	KindAuthority:     {"authorities", "authority_records"},
	KindAuthorization: {"authorizations", "authorization_records"},
	KindClient:        {"clients", "client_records"},
	KindCredential:    {"credentials", "credential_records"},
	KindGrant:         {"grants", "grant_records"},
	KindRole:          {"roles", "role_records"},
	KindUser:          {"users", "user_records"},
}

// RecordMeta carries the append-only provenance shared by every record. A
// record is current exactly when ReplacementRecordID is null; writes replace
// the current record by pointing it at the new record id, never in place.
type RecordMeta struct {
	RecordID                 string    `bun:"record_id,pk"`
	EntityID                 string    `bun:"entity_id,notnull"`
	ReplacementRecordID      *string   `bun:"replacement_record_id"`
	CreatedByAuthorizationID string    `bun:"created_by_authorization_id,notnull"`
	CreatedAt                time.Time `bun:"created_at,notnull"`
}

// IsCurrent reports whether this record is the entity's current state.
func (m *RecordMeta) IsCurrent() bool {
	return m.ReplacementRecordID == nil
}

// entityRecord is implemented by every record model.
type entityRecord interface {
	Meta() *RecordMeta
	EntityKind() EntityKind
}

// UserType distinguishes human users from bots.
type UserType string

const (
	UserTypeHuman UserType = "human"
	UserTypeBot   UserType = "bot"
)

// UserRecord is one version of a user. The current record doubles as the
// user's present state.
type UserRecord struct {
	bun.BaseModel `bun:"table:user_records,alias:ur"`
	RecordMeta

	Enabled bool     `bun:"enabled,notnull"`
	Type    UserType `bun:"type,notnull"`
	Name    string   `bun:"name,notnull"`
}

func (r *UserRecord) Meta() *RecordMeta       { return &r.RecordMeta }
func (r *UserRecord) EntityKind() EntityKind  { return KindUser }
func (r *UserRecord) ResourceRef() ResourceRef { return ResourceRef{Kind: KindUser, UserID: r.EntityID} }

// RoleRecord is one version of a role: a named bundle of scope patterns plus
// the ids of the users it is assigned to.
type RoleRecord struct {
	bun.BaseModel `bun:"table:role_records,alias:rr"`
	RecordMeta

	Enabled     bool     `bun:"enabled,notnull"`
	Name        string   `bun:"name,notnull"`
	Description string   `bun:"description"`
	Scopes      []string `bun:"scopes,array"`
	UserIDs     []string `bun:"user_ids,array"`
}

func (r *RoleRecord) Meta() *RecordMeta       { return &r.RecordMeta }
func (r *RoleRecord) EntityKind() EntityKind  { return KindRole }
func (r *RoleRecord) ResourceRef() ResourceRef { return ResourceRef{Kind: KindRole, RoleID: r.EntityID} }

// HasUser reports whether the role is assigned to the given user.
func (r *RoleRecord) HasUser(userID string) bool {
	for _, id := range r.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// GrantRecord is one version of a grant: a user's standing authorization to
// act on behalf of a client, narrowed by its own scope list.
type GrantRecord struct {
	bun.BaseModel `bun:"table:grant_records,alias:gr"`
	RecordMeta

	Enabled  bool     `bun:"enabled,notnull"`
	UserID   string   `bun:"user_id,notnull"`
	ClientID string   `bun:"client_id,notnull"`
	Secrets  []string `bun:"secrets,array"`
	Codes    []string `bun:"codes,array"`
	Scopes   []string `bun:"scopes,array"`
}

func (r *GrantRecord) Meta() *RecordMeta      { return &r.RecordMeta }
func (r *GrantRecord) EntityKind() EntityKind { return KindGrant }
func (r *GrantRecord) ResourceRef() ResourceRef {
	return ResourceRef{Kind: KindGrant, ClientID: r.ClientID, GrantID: r.EntityID, UserID: r.UserID}
}

// AuthorizationRecord is one version of an authorization: a live session or
// token scoped within a grant (or directly within a user when no grant is
// involved).
type AuthorizationRecord struct {
	bun.BaseModel `bun:"table:authorization_records,alias:azr"`
	RecordMeta

	Enabled bool     `bun:"enabled,notnull"`
	UserID  string   `bun:"user_id,notnull"`
	GrantID string   `bun:"grant_id,nullzero"`
	Scopes  []string `bun:"scopes,array"`
}

func (r *AuthorizationRecord) Meta() *RecordMeta      { return &r.RecordMeta }
func (r *AuthorizationRecord) EntityKind() EntityKind { return KindAuthorization }
func (r *AuthorizationRecord) ResourceRef() ResourceRef {
	return ResourceRef{Kind: KindAuthorization, AuthorizationID: r.EntityID, GrantID: r.GrantID, UserID: r.UserID}
}

// ClientRecord is one version of a client application.
type ClientRecord struct {
	bun.BaseModel `bun:"table:client_records,alias:cr"`
	RecordMeta

	Enabled     bool     `bun:"enabled,notnull"`
	Name        string   `bun:"name,notnull"`
	Description string   `bun:"description"`
	Secrets     []string `bun:"secrets,array"`
	URLs        []string `bun:"urls,array"`
}

func (r *ClientRecord) Meta() *RecordMeta       { return &r.RecordMeta }
func (r *ClientRecord) EntityKind() EntityKind  { return KindClient }
func (r *ClientRecord) ResourceRef() ResourceRef { return ResourceRef{Kind: KindClient, ClientID: r.EntityID} }

// AuthorityRecord is one version of an authority: a pluggable login mechanism
// provider identified by its strategy kind.
type AuthorityRecord struct {
	bun.BaseModel `bun:"table:authority_records,alias:atr"`
	RecordMeta

	Enabled     bool           `bun:"enabled,notnull"`
	Kind        AuthorityKind  `bun:"kind,notnull"`
	Name        string         `bun:"name,notnull"`
	Description string         `bun:"description"`
	Details     map[string]any `bun:"details,type:jsonb"`
}

func (r *AuthorityRecord) Meta() *RecordMeta      { return &r.RecordMeta }
func (r *AuthorityRecord) EntityKind() EntityKind { return KindAuthority }
func (r *AuthorityRecord) ResourceRef() ResourceRef {
	return ResourceRef{Kind: KindAuthority, AuthorityID: r.EntityID}
}

// CredentialRecord is one version of a credential: proof binding a user to an
// authority's external identity.
type CredentialRecord struct {
	bun.BaseModel `bun:"table:credential_records,alias:crr"`
	RecordMeta

	Enabled         bool           `bun:"enabled,notnull"`
	AuthorityID     string         `bun:"authority_id,notnull"`
	UserID          string         `bun:"user_id,notnull"`
	AuthorityUserID string         `bun:"authority_user_id,notnull"`
	Details         map[string]any `bun:"details,type:jsonb"`
}

func (r *CredentialRecord) Meta() *RecordMeta      { return &r.RecordMeta }
func (r *CredentialRecord) EntityKind() EntityKind { return KindCredential }
func (r *CredentialRecord) ResourceRef() ResourceRef {
	return ResourceRef{Kind: KindCredential, AuthorityID: r.AuthorityID, CredentialID: r.EntityID, UserID: r.UserID}
}

// ResourceRef names a specific entity (or, with empty ids, "a new entity" of
// a kind) in the fixed nine-token resource dimension of a scope:
//
//	v2.<kind>.<authority>.<authorization>.<client>.<credential>.<grant>.<role>.<user>
//
// Unused slots stay empty; callers may place "*" in a slot to address any
// entity in that position.
type ResourceRef struct {
	Kind            EntityKind
	AuthorityID     string
	AuthorizationID string
	ClientID        string
	CredentialID    string
	GrantID         string
	RoleID          string
	UserID          string
}

// String renders the resource dimension of the scope.
func (r ResourceRef) String() string {
	return strings.Join([]string{
		"v2",
		string(r.Kind),
		r.AuthorityID,
		r.AuthorizationID,
		r.ClientID,
		r.CredentialID,
		r.GrantID,
		r.RoleID,
		r.UserID,
	}, ".")
}

// Action names a capability in the fixed five-token action dimension of a
// scope:
//
//	<basic>.<details>.<scopes>.<secrets>.<users>
//
// Each slot holds "r", "w", "*" or stays empty.
type Action struct {
	Basic   string
	Details string
	Scopes  string
	Secrets string
	Users   string
}

// Common actions used by access checks.
var (
	ActionReadBasic  = Action{Basic: "r"}
	ActionWriteBasic = Action{Basic: "w"}
)

// String renders the action dimension of the scope.
func (a Action) String() string {
	return strings.Join([]string{a.Basic, a.Details, a.Scopes, a.Secrets, a.Users}, ".")
}

// FormatScope builds the canonical scope string describing an action on a
// specific entity within a realm.
func FormatScope(realm string, ref ResourceRef, action Action) string {
	return realm + ":" + ref.String() + ":" + action.String()
}
