package authx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRecordMetaIsCurrent tests the current-record predicate
func TestRecordMetaIsCurrent(t *testing.T) {
	m := RecordMeta{RecordID: "r1", EntityID: "e1"}
	assert.True(t, m.IsCurrent())

	next := "r2"
	m.ReplacementRecordID = &next
	assert.False(t, m.IsCurrent())
}

// TestResourceRefString tests resource dimension rendering for every kind
func TestResourceRefString(t *testing.T) {
	tests := []struct {
		name     string
		ref      ResourceRef
		expected string
	}{
		{
			name:     "User",
			ref:      ResourceRef{Kind: KindUser, UserID: "u1"},
			expected: "v2.user.......u1",
		},
		{
			name:     "Role",
			ref:      ResourceRef{Kind: KindRole, RoleID: "r1"},
			expected: "v2.role......r1.",
		},
		{
			name:     "Client",
			ref:      ResourceRef{Kind: KindClient, ClientID: "c1"},
			expected: "v2.client...c1....",
		},
		{
			name:     "Grant",
			ref:      ResourceRef{Kind: KindGrant, ClientID: "c1", GrantID: "g1", UserID: "u1"},
			expected: "v2.grant...c1..g1..u1",
		},
		{
			name:     "Authorization",
			ref:      ResourceRef{Kind: KindAuthorization, AuthorizationID: "a1", GrantID: "g1", UserID: "u1"},
			expected: "v2.authorization..a1...g1..u1",
		},
		{
			name:     "Authority",
			ref:      ResourceRef{Kind: KindAuthority, AuthorityID: "at1"},
			expected: "v2.authority.at1......",
		},
		{
			name:     "Credential",
			ref:      ResourceRef{Kind: KindCredential, AuthorityID: "at1", CredentialID: "cr1", UserID: "u1"},
			expected: "v2.credential.at1...cr1...u1",
		},
		{
			name:     "New entity has empty slots",
			ref:      ResourceRef{Kind: KindUser},
			expected: "v2.user.......",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ref.String())
			assert.True(t, IsValidScopePattern("app:"+tt.ref.String()+":r"))
		})
	}
}

// TestActionString tests action dimension rendering
func TestActionString(t *testing.T) {
	assert.Equal(t, "r....", ActionReadBasic.String())
	assert.Equal(t, "w....", ActionWriteBasic.String())
	assert.Equal(t, "w..w..", Action{Basic: "w", Scopes: "w"}.String())
	assert.Equal(t, "*.*.*.*.*", Action{Basic: "*", Details: "*", Scopes: "*", Secrets: "*", Users: "*"}.String())
}

// TestModelResourceRefs tests that each record model names itself correctly
func TestModelResourceRefs(t *testing.T) {
	user := &UserRecord{RecordMeta: RecordMeta{EntityID: "u1"}}
	assert.Equal(t, ResourceRef{Kind: KindUser, UserID: "u1"}, user.ResourceRef())
	assert.Equal(t, KindUser, user.EntityKind())

	grant := &GrantRecord{RecordMeta: RecordMeta{EntityID: "g1"}, UserID: "u1", ClientID: "c1"}
	assert.Equal(t, ResourceRef{Kind: KindGrant, ClientID: "c1", GrantID: "g1", UserID: "u1"}, grant.ResourceRef())

	cred := &CredentialRecord{RecordMeta: RecordMeta{EntityID: "cr1"}, AuthorityID: "at1", UserID: "u1"}
	assert.Equal(t, ResourceRef{Kind: KindCredential, AuthorityID: "at1", CredentialID: "cr1", UserID: "u1"}, cred.ResourceRef())
}

// TestRoleRecordHasUser tests role membership lookup
func TestRoleRecordHasUser(t *testing.T) {
	role := &RoleRecord{UserIDs: []string{"u1", "u2"}}
	assert.True(t, role.HasUser("u1"))
	assert.True(t, role.HasUser("u2"))
	assert.False(t, role.HasUser("u3"))
	assert.False(t, (&RoleRecord{}).HasUser("u1"))
}

// TestEntityTablesComplete tests that every kind maps to its tables
func TestEntityTablesComplete(t *testing.T) {
	kinds := []EntityKind{
		KindAuthority, KindAuthorization, KindClient, KindCredential,
		KindGrant, KindRole, KindUser,
	}
	for _, kind := range kinds {
		tables, ok := entityTables[kind]
		assert.True(t, ok, "missing tables for kind %s", kind)
		assert.NotEmpty(t, tables.entity)
		assert.NotEmpty(t, tables.record)
	}
	assert.Len(t, entityTables, len(kinds))
}

// TestRoleAccessSubstitution tests template expansion on role scopes
func TestRoleAccessSubstitution(t *testing.T) {
	role := &RoleRecord{
		Enabled: true,
		Scopes: []string{
			"app:v2.user.......{current_user_id}:r....",
			"app:v2.grant.....{current_grant_id}..:r....",
			"app:v2.client.......:r....",
		},
	}

	v := ContextValues{CurrentUserID: "u1"}
	access := role.Access(v)

	// The grant pattern is dropped: no grant in context.
	assert.Equal(t, []string{
		"app:v2.user.......u1:r....",
		"app:v2.client.......:r....",
	}, access)
}

// TestRoleAccessDisabled tests that a disabled role grants nothing
func TestRoleAccessDisabled(t *testing.T) {
	role := &RoleRecord{
		Enabled: false,
		Scopes:  []string{"app:*:*"},
	}
	assert.Nil(t, role.Access(ContextValues{CurrentUserID: "u1"}))
}

// TestWriteMetaStamping tests provenance stamping on the service clock
func TestWriteMetaStamping(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewService("app", nil, WithClock(func() time.Time { return fixed }))

	meta := s.writeMeta("a1")
	assert.NotEmpty(t, meta.RecordID)
	assert.Equal(t, "a1", meta.CreatedByAuthorizationID)
	assert.Equal(t, fixed, meta.CreatedAt)
}
