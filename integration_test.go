package authx

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegrationUserLifecycle tests create, update, read and history for a
// user entity
func TestIntegrationUserLifecycle(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization

	user, err := f.Service.CreateUser(ctx, root, CreateUser{
		Enabled: true,
		Type:    UserTypeHuman,
		Name:    "Ada",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.EntityID)
	assert.NotEmpty(t, user.RecordID)
	assert.True(t, user.IsCurrent())
	assert.Equal(t, root, user.CreatedByAuthorizationID)

	name := "Ada Lovelace"
	updated, err := f.Service.UpdateUser(ctx, root, UpdateUser{ID: user.EntityID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.NotEqual(t, user.RecordID, updated.RecordID)
	assert.Equal(t, user.EntityID, updated.EntityID)

	read, err := f.Service.ReadUser(ctx, root, user.EntityID)
	require.NoError(t, err)
	assert.Equal(t, updated.RecordID, read.RecordID)

	history, err := f.Service.UserRecords(ctx, root, user.EntityID, NewRecordFilter())
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first; only the newest is current and the older record points
	// at its replacement.
	assert.Equal(t, updated.RecordID, history[0].RecordID)
	assert.True(t, history[0].IsCurrent())
	assert.False(t, history[1].IsCurrent())
	require.NotNil(t, history[1].ReplacementRecordID)
	assert.Equal(t, updated.RecordID, *history[1].ReplacementRecordID)
}

// TestIntegrationExplicitIDConflict tests that an entity id already in use
// cannot be claimed again
func TestIntegrationExplicitIDConflict(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization
	id := NewEntityID()

	_, err = f.Service.CreateUser(ctx, root, CreateUser{ID: id, Enabled: true, Type: UserTypeBot, Name: "one"})
	require.NoError(t, err)

	_, err = f.Service.CreateUser(ctx, root, CreateUser{ID: id, Enabled: true, Type: UserTypeBot, Name: "two"})
	assert.True(t, IsConflict(err))
}

// TestIntegrationConcurrentFirstWriter tests that two writers racing to
// create the first record for the same entity id resolve to exactly one
// winner; the loser fails with a conflict instead of producing a second
// current record
func TestIntegrationConcurrentFirstWriter(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization
	id := NewEntityID()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.Service.CreateUser(ctx, root, CreateUser{
				ID:      id,
				Enabled: true,
				Type:    UserTypeBot,
				Name:    fmt.Sprintf("racer-%d", i),
			})
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error from racing create: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, conflicts)

	history, err := f.Service.UserRecords(ctx, root, id, NewRecordFilter())
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.True(t, history[0].IsCurrent())
}

// TestIntegrationReadUnknownEntity tests that missing ids surface ErrNotFound
func TestIntegrationReadUnknownEntity(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Service.ReadUser(ctx, f.RootAuthorization, NewEntityID())
	assert.True(t, IsNotFound(err))
}

// TestIntegrationAccessGraph tests the narrowing chain from role scopes down
// to an authorization's effective access
func TestIntegrationAccessGraph(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization

	user, err := f.Service.CreateUser(ctx, root, CreateUser{Enabled: true, Type: UserTypeHuman, Name: "grace"})
	require.NoError(t, err)

	// A role granting read on every user in the realm.
	roleScope := TestRealm + ":v2.user.......*:r...."
	role, err := f.Service.CreateRole(ctx, root, CreateRole{
		Enabled: true,
		Name:    "user-reader",
		Scopes:  []string{roleScope},
		UserIDs: []string{user.EntityID},
	})
	require.NoError(t, err)

	client, err := f.Service.CreateClient(ctx, root, CreateClient{Enabled: true, Name: "web"})
	require.NoError(t, err)

	grant, err := f.Service.CreateGrant(ctx, root, CreateGrant{
		Enabled:  true,
		UserID:   user.EntityID,
		ClientID: client.EntityID,
		Scopes:   []string{roleScope},
	})
	require.NoError(t, err)

	authorization, err := f.Service.CreateAuthorization(ctx, root, CreateAuthorization{
		Enabled: true,
		UserID:  user.EntityID,
		GrantID: grant.EntityID,
		Scopes:  []string{TestRealm + ":*.*.*.*.*.*.*.*.*:*.*.*.*.*"},
	})
	require.NoError(t, err)

	readUser := TestRealm + ":v2.user......." + user.EntityID + ":r...."
	writeUser := TestRealm + ":v2.user......." + user.EntityID + ":w...."

	// The authorization asked for everything but is narrowed by the grant
	// and the user's roles to read-only on users.
	ok, err := f.Service.Can(ctx, authorization.EntityID, readUser)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Service.Can(ctx, authorization.EntityID, writeUser)
	require.NoError(t, err)
	assert.False(t, ok)

	// Disabling the role cuts access on the next resolution.
	disabled := false
	_, err = f.Service.UpdateRole(ctx, root, UpdateRole{ID: role.EntityID, Enabled: &disabled})
	require.NoError(t, err)

	ok, err = f.Service.Can(ctx, authorization.EntityID, readUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestIntegrationDisabledGrantCutsAuthorization tests that disabling the
// grant behind an authorization revokes its access immediately
func TestIntegrationDisabledGrantCutsAuthorization(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization
	roleScope := TestRealm + ":v2.user.......*:r...."

	user, err := f.Service.CreateUser(ctx, root, CreateUser{Enabled: true, Type: UserTypeHuman, Name: "lin"})
	require.NoError(t, err)
	_, err = f.Service.CreateRole(ctx, root, CreateRole{
		Enabled: true, Name: "reader", Scopes: []string{roleScope}, UserIDs: []string{user.EntityID},
	})
	require.NoError(t, err)
	client, err := f.Service.CreateClient(ctx, root, CreateClient{Enabled: true, Name: "cli"})
	require.NoError(t, err)
	grant, err := f.Service.CreateGrant(ctx, root, CreateGrant{
		Enabled: true, UserID: user.EntityID, ClientID: client.EntityID, Scopes: []string{roleScope},
	})
	require.NoError(t, err)
	authorization, err := f.Service.CreateAuthorization(ctx, root, CreateAuthorization{
		Enabled: true, UserID: user.EntityID, GrantID: grant.EntityID, Scopes: []string{roleScope},
	})
	require.NoError(t, err)

	readUser := TestRealm + ":v2.user......." + user.EntityID + ":r...."

	ok, err := f.Service.Can(ctx, authorization.EntityID, readUser)
	require.NoError(t, err)
	assert.True(t, ok)

	disabled := false
	_, err = f.Service.UpdateGrant(ctx, root, UpdateGrant{ID: grant.EntityID, Enabled: &disabled})
	require.NoError(t, err)

	ok, err = f.Service.Can(ctx, authorization.EntityID, readUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestIntegrationForbiddenCaller tests that a caller without coverage is
// rejected with ErrForbidden
func TestIntegrationForbiddenCaller(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization

	// A user with read-only access to users.
	reader, err := f.Service.CreateUser(ctx, root, CreateUser{Enabled: true, Type: UserTypeHuman, Name: "reader"})
	require.NoError(t, err)
	_, err = f.Service.CreateRole(ctx, root, CreateRole{
		Enabled: true,
		Name:    "readers",
		Scopes:  []string{TestRealm + ":v2.user.......*:r...."},
		UserIDs: []string{reader.EntityID},
	})
	require.NoError(t, err)
	readerAuth, err := f.Service.CreateAuthorization(ctx, root, CreateAuthorization{
		Enabled: true,
		UserID:  reader.EntityID,
		Scopes:  []string{TestRealm + ":*.*.*.*.*.*.*.*.*:*.*.*.*.*"},
	})
	require.NoError(t, err)

	target, err := f.Service.CreateUser(ctx, root, CreateUser{Enabled: true, Type: UserTypeBot, Name: "target"})
	require.NoError(t, err)

	// Reading is covered.
	_, err = f.Service.ReadUser(ctx, readerAuth.EntityID, target.EntityID)
	require.NoError(t, err)

	// Writing is not.
	name := "renamed"
	_, err = f.Service.UpdateUser(ctx, readerAuth.EntityID, UpdateUser{ID: target.EntityID, Name: &name})
	assert.True(t, IsForbidden(err))

	// Neither is creating.
	_, err = f.Service.CreateUser(ctx, readerAuth.EntityID, CreateUser{Enabled: true, Type: UserTypeBot, Name: "nope"})
	assert.True(t, IsForbidden(err))
}

// TestIntegrationAdministrationDelegation tests that creating an entity can
// delegate administration to a role, bounded by the creator's access
func TestIntegrationAdministrationDelegation(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization

	admins, err := f.Service.CreateRole(ctx, root, CreateRole{Enabled: true, Name: "client-admins"})
	require.NoError(t, err)

	client, err := f.Service.CreateClient(ctx, root, CreateClient{
		Enabled: true,
		Name:    "dashboard",
		Administration: []AdministrationDelegation{{
			RoleID: admins.EntityID,
			Scopes: AdministrationScopes(TestRealm, ResourceRef{Kind: KindClient, ClientID: "*"}),
		}},
	})
	require.NoError(t, err)

	role, err := f.Service.ReadRole(ctx, root, admins.EntityID)
	require.NoError(t, err)
	assert.True(t, IsSuperset(role.Scopes,
		FormatScope(TestRealm, client.ResourceRef(), ActionReadBasic)))
	assert.True(t, IsSuperset(role.Scopes,
		FormatScope(TestRealm, client.ResourceRef(), ActionWriteBasic)))
}

// TestIntegrationSingleEnabledGrantPerPair tests the one-enabled-grant rule
func TestIntegrationSingleEnabledGrantPerPair(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization

	user, err := f.Service.CreateUser(ctx, root, CreateUser{Enabled: true, Type: UserTypeHuman, Name: "pat"})
	require.NoError(t, err)
	client, err := f.Service.CreateClient(ctx, root, CreateClient{Enabled: true, Name: "mobile"})
	require.NoError(t, err)

	_, err = f.Service.CreateGrant(ctx, root, CreateGrant{Enabled: true, UserID: user.EntityID, ClientID: client.EntityID})
	require.NoError(t, err)

	_, err = f.Service.CreateGrant(ctx, root, CreateGrant{Enabled: true, UserID: user.EntityID, ClientID: client.EntityID})
	assert.True(t, IsConflict(err))

	// A disabled grant for the same pair is fine.
	_, err = f.Service.CreateGrant(ctx, root, CreateGrant{Enabled: false, UserID: user.EntityID, ClientID: client.EntityID})
	require.NoError(t, err)
}

// TestIntegrationCredentialUniqueness tests the single-enabled-credential
// rule per authority and external user id
func TestIntegrationCredentialUniqueness(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization

	user, err := f.Service.CreateUser(ctx, root, CreateUser{Enabled: true, Type: UserTypeHuman, Name: "kim"})
	require.NoError(t, err)
	authority, err := f.Service.CreateAuthority(ctx, root, CreateAuthority{
		Enabled: true, Kind: AuthorityKindEmail, Name: "corp-email",
	})
	require.NoError(t, err)

	externalID := "kim-" + NewEntityID()
	_, err = f.Service.CreateCredential(ctx, root, CreateCredential{
		Enabled:         true,
		AuthorityID:     authority.EntityID,
		UserID:          user.EntityID,
		AuthorityUserID: externalID,
	})
	require.NoError(t, err)

	_, err = f.Service.CreateCredential(ctx, root, CreateCredential{
		Enabled:         true,
		AuthorityID:     authority.EntityID,
		UserID:          user.EntityID,
		AuthorityUserID: externalID,
	})
	assert.True(t, IsConflict(err))
}

// TestIntegrationRelationshipQueries tests edge walks from users, grants and
// authorities
func TestIntegrationRelationshipQueries(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization

	user, err := f.Service.CreateUser(ctx, root, CreateUser{Enabled: true, Type: UserTypeHuman, Name: "sam"})
	require.NoError(t, err)
	role, err := f.Service.CreateRole(ctx, root, CreateRole{
		Enabled: true, Name: "sam-role", UserIDs: []string{user.EntityID},
	})
	require.NoError(t, err)
	client, err := f.Service.CreateClient(ctx, root, CreateClient{Enabled: true, Name: "svc"})
	require.NoError(t, err)
	grant, err := f.Service.CreateGrant(ctx, root, CreateGrant{
		Enabled: true, UserID: user.EntityID, ClientID: client.EntityID,
	})
	require.NoError(t, err)
	authorization, err := f.Service.CreateAuthorization(ctx, root, CreateAuthorization{
		Enabled: true, UserID: user.EntityID, GrantID: grant.EntityID,
	})
	require.NoError(t, err)

	roles, err := f.Service.UserRoles(ctx, root, user.EntityID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, role.EntityID, roles[0].EntityID)

	grants, err := f.Service.UserGrants(ctx, root, user.EntityID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, grant.EntityID, grants[0].EntityID)

	found, err := f.Service.UserGrantForClient(ctx, root, user.EntityID, client.EntityID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, grant.EntityID, found.EntityID)

	auths, err := f.Service.GrantAuthorizations(ctx, root, grant.EntityID)
	require.NoError(t, err)
	require.Len(t, auths, 1)
	assert.Equal(t, authorization.EntityID, auths[0].EntityID)
}

// TestIntegrationTransactionRollback tests that a failing step rolls back
// everything in the enclosing transaction
func TestIntegrationTransactionRollback(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	root := f.RootAuthorization
	var userID string

	err = f.Service.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		user, err := tx.CreateUser(ctx, root, CreateUser{Enabled: true, Type: UserTypeBot, Name: "ghost"})
		if err != nil {
			return err
		}
		userID = user.EntityID
		return NewError(ErrValidation, "forced rollback")
	})
	require.Error(t, err)

	_, err = f.Service.ReadUser(ctx, root, userID)
	assert.True(t, IsNotFound(err))
}

// TestIntegrationHealth tests the health extension against a live database
func TestIntegrationHealth(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	hs := NewHealthService(f.Service)
	assert.True(t, hs.IsHealthy(ctx))
	assert.NoError(t, hs.Ping(ctx))
	assert.True(t, hs.Health(ctx).Healthy)

	metrics := hs.GetTransactionMetrics()
	assert.GreaterOrEqual(t, metrics.TotalTransactions, int64(1))
}

// TestIntegrationPoolConfiguration tests the pool extension against a live
// database
func TestIntegrationPoolConfiguration(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	f, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer f.Close()

	ps := NewPoolService(f.Service)
	require.NoError(t, ps.ConfigureConnectionPool(DefaultPoolConfig()))

	config, err := ps.GetConnectionPoolConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPoolConfig().MaxOpenConnections, config.MaxOpenConnections)

	require.NoError(t, ps.ResetConnectionPool())
}
