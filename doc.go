// Package authx provides an identity and access management core built around
// a scope algebra, a versioned entity store, and a live access-resolution
// graph.
//
// # Core Concepts
//
// Scope: a three-dimension string "realm:resource:action" naming a
// capability. The resource dimension has nine dot-separated tokens
// ("v2.<kind>.<authority>.<authorization>.<client>.<credential>.<grant>.<role>.<user>")
// and the action dimension five ("<basic>.<details>.<scopes>.<secrets>.<users>").
// Tokens may be literals, "*" (any single token), or a template placeholder
// such as "{current_user_id}" that is substituted at resolution time.
//
// Entity: one of seven kinds (user, role, client, grant, authorization,
// authority, credential), each stored as an append-only chain of records.
// The record whose replacement pointer is null is the entity's current
// state; history is never rewritten.
//
// Access: a caller's effective permission set, computed live on every check.
// An authorization's scopes are intersected with its grant's, a grant's with
// its owning user's, and a user's access is the union of its enabled roles'
// scope patterns. Disabling any link in the chain cuts access immediately.
//
// # Key Features
//
//   - Scope algebra: superset, intersection and simplification over
//     wildcard patterns, with template substitution
//   - Versioned store: every write appends a record; full history stays
//     queryable, and concurrent writers conflict instead of clobbering
//   - Live access resolution: nothing derived is persisted, so revocation
//     takes effect on the next check
//   - Administration bounding: creators can delegate administration of new
//     entities to roles, but never beyond their own access
//   - Credential validation: multi-key bearer token verification and
//     delegated basic credentials
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Create the service
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := authx.NewService("app", db)
//
//	// 2. Run migrations
//	db.Migrate(ctx, authx.NewMigrationService(service).Migrations())
//
//	// 3. Provision the first identity (once per realm)
//	root, _ := service.BootstrapRoot(ctx, authx.Bootstrap{})
//	callerID := root.AuthorizationID
//
//	// 4. Create entities
//	user, _ := service.CreateUser(ctx, callerID, authx.CreateUser{
//	    Enabled: true,
//	    Type:    authx.UserTypeHuman,
//	    Name:    "Ada",
//	})
//
//	// 5. Check permissions
//	ok, _ := service.Can(ctx, callerID,
//	    authx.FormatScope("app", user.ResourceRef(), authx.ActionReadBasic))
//
// # Middleware Usage
//
//	validator := authx.NewValidator(authx.WithKeys(publicKeys...))
//	mw := authx.NewMiddleware(service, validator)
//
//	router.Use(mw.Authenticate())
//	router.With(mw.RequireScope("app:v2.user.......:r....")).
//	    Get("/users/{id}", readUserHandler)
//
// # Scope Wildcards
//
// A "*" token matches any single token in its position, including the empty
// one. A role holding "app:v2.user.......*:*...." can act on every user;
// a role holding "app:v2.user.......{current_user_id}:r...." can read only
// the user behind the calling session.
package authx
