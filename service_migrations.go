package authx

import (
	"fmt"

	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an
// extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// recordColumns holds the kind-specific columns of each record table. The
// shared meta columns and the single-current-record index are generated.
var recordColumns = map[EntityKind]string{
	KindAuthority: `
		enabled BOOLEAN NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		details JSONB`,
	KindAuthorization: `
		enabled BOOLEAN NOT NULL,
		user_id TEXT NOT NULL,
		grant_id TEXT,
		scopes TEXT[]`,
	KindClient: `
		enabled BOOLEAN NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		secrets TEXT[],
		urls TEXT[]`,
	KindCredential: `
		enabled BOOLEAN NOT NULL,
		authority_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		authority_user_id TEXT NOT NULL,
		details JSONB`,
	KindGrant: `
		enabled BOOLEAN NOT NULL,
		user_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		secrets TEXT[],
		codes TEXT[],
		scopes TEXT[]`,
	KindRole: `
		enabled BOOLEAN NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		scopes TEXT[],
		user_ids TEXT[]`,
	KindUser: `
		enabled BOOLEAN NOT NULL,
		type TEXT NOT NULL,
		name TEXT NOT NULL`,
}

// migrationKindOrder fixes migration ids across releases; map iteration order
// would reshuffle them.
var migrationKindOrder = []EntityKind{
	KindUser, KindRole, KindClient, KindGrant,
	KindAuthorization, KindAuthority, KindCredential,
}

// Migrations returns all database migrations required by the store, two per
// entity kind: the entity-id table plus the append-only record table with
// its partial unique index guaranteeing a single current record per entity.
// Use db.Migrate(ctx, service.Migrations()) to run migrations.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	var migrations []dbkit.Migration
	for i, kind := range migrationKindOrder {
		tables := entityTables[kind]
		migrations = append(migrations,
			dbkit.Migration{
				ID:          fmt.Sprintf("authx-%03d", 2*i+1),
				Description: fmt.Sprintf("Create %s table", tables.entity),
				SQL: fmt.Sprintf(`
                CREATE TABLE IF NOT EXISTS %s (
                    id TEXT PRIMARY KEY
                )`, tables.entity),
			},
			dbkit.Migration{
				ID:          fmt.Sprintf("authx-%03d", 2*i+2),
				Description: fmt.Sprintf("Create %s table", tables.record),
				SQL: fmt.Sprintf(`
                CREATE TABLE IF NOT EXISTS %s (
                    record_id TEXT PRIMARY KEY,
                    entity_id TEXT NOT NULL REFERENCES %s (id),
                    replacement_record_id TEXT,
                    created_by_authorization_id TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,%s
                );
                CREATE UNIQUE INDEX IF NOT EXISTS %s_current_idx
                    ON %s (entity_id) WHERE replacement_record_id IS NULL`,
					tables.record, tables.entity, recordColumns[kind],
					tables.record, tables.record),
			},
		)
	}
	return migrations
}
