package authx

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// The versioned store gives every entity kind the same append-only contract:
// reads return the single current record per entity id, writes atomically
// null-check-and-replace the current record's replacement pointer inside the
// caller's transaction, and history stays queryable forever. The partial
// unique index on (entity_id) WHERE replacement_record_id IS NULL makes a
// losing concurrent writer fail at commit instead of producing two current
// records.

// WriteMeta carries the provenance attached to a new record.
type WriteMeta struct {
	RecordID                 string
	CreatedByAuthorizationID string
	CreatedAt                time.Time
}

// recordOf constrains a type parameter to a pointer to one of the record
// models.
type recordOf[T any] interface {
	*T
	entityRecord
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// readCurrent returns the current record for each of the given entity ids, in
// input order. It fails with ErrNotFound if any id has no current record, and
// with ErrInvariant if the store holds more current records than ids
// requested. With forUpdate set it takes row locks for the duration of the
// enclosing transaction so concurrent writers to the same entities serialize.
func readCurrent[T any, PT recordOf[T]](ctx context.Context, db dbkit.IDB, ids []string, forUpdate bool) ([]PT, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := distinct(ids)

	var recs []T
	q := db.NewSelect().
		Model(&recs).
		Where("entity_id IN (?)", bun.In(unique)).
		Where("replacement_record_id IS NULL")
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := dbkit.WithErr1(q.Scan(ctx), "ReadCurrent").Err(); err != nil {
		return nil, err
	}

	var kind EntityKind = PT(new(T)).EntityKind()
	if len(recs) > len(unique) {
		return nil, NewError(ErrInvariant, "read returned more current records than entity ids requested").
			WithEntity(kind, unique[0])
	}

	byID := make(map[string]PT, len(recs))
	for i := range recs {
		rec := PT(&recs[i])
		byID[rec.Meta().EntityID] = rec
	}

	out := make([]PT, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			return nil, NewError(ErrNotFound, "no current record for entity").
				WithEntity(kind, id)
		}
		out = append(out, rec)
	}
	return out, nil
}

// readCurrentOne is the single-id form of readCurrent.
func readCurrentOne[T any, PT recordOf[T]](ctx context.Context, db dbkit.IDB, id string, forUpdate bool) (PT, error) {
	recs, err := readCurrent[T, PT](ctx, db, []string{id}, forUpdate)
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// writeRecord ensures the entity id exists, points the previous current
// record (if any) at the new record id, and inserts the new record as
// current. It must run inside an explicit transaction owned by the caller so
// permission checks between read and write observe a consistent snapshot and
// all side effects commit or roll back together.
func writeRecord[T any, PT recordOf[T]](ctx context.Context, db dbkit.IDB, rec PT, meta WriteMeta) error {
	m := rec.Meta()
	kind := rec.EntityKind()
	if m.EntityID == "" {
		return NewError(ErrValidation, "record is missing an entity id").WithEntity(kind, "")
	}
	m.RecordID = meta.RecordID
	m.ReplacementRecordID = nil
	m.CreatedByAuthorizationID = meta.CreatedByAuthorizationID
	m.CreatedAt = meta.CreatedAt

	tables := entityTables[kind]

	// Ensure the entity id exists.
	_, err := db.NewRaw(
		"INSERT INTO ? (id) VALUES (?) ON CONFLICT DO NOTHING",
		bun.Ident(tables.entity), m.EntityID,
	).Exec(ctx)
	if err = dbkit.WithErr1(err, "EnsureEntity").Err(); err != nil {
		return err
	}

	// Replace the previous current record.
	res, err := db.NewUpdate().
		Model((*T)(nil)).
		Set("replacement_record_id = ?", m.RecordID).
		Where("entity_id = ?", m.EntityID).
		Where("replacement_record_id IS NULL").
		Exec(ctx)
	if err = dbkit.WithErr(res, err, "ReplaceRecord").Err(); err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows > 1 {
		return NewError(ErrInvariant, "replaced more than one current record").
			WithEntity(kind, m.EntityID)
	}

	// Insert the new current record. A duplicate on the partial unique index
	// means a concurrent writer created a current record first.
	res, err = db.NewInsert().Model(rec).Exec(ctx)
	if err = dbkit.WithErr(res, err, "InsertRecord").Err(); err != nil {
		if dbkit.IsDuplicate(err) {
			return NewError(ErrConflict, "a concurrent writer created a current record for this entity").
				WithEntity(kind, m.EntityID)
		}
		return err
	}
	return nil
}

// recordHistory returns the full record history for an entity, newest first.
// Read-only; takes no locks.
func recordHistory[T any, PT recordOf[T]](ctx context.Context, db dbkit.IDB, id string, filter RecordFilter) ([]PT, error) {
	var recs []T
	q := db.NewSelect().
		Model(&recs).
		Where("entity_id = ?", id)
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at <= ?", filter.Until)
	}
	q = q.Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := dbkit.WithErr1(q.Scan(ctx), "RecordHistory").Err(); err != nil {
		return nil, err
	}
	out := make([]PT, 0, len(recs))
	for i := range recs {
		out = append(out, PT(&recs[i]))
	}
	return out, nil
}

// probeEntityID checks that an explicitly supplied entity id is free,
// locking the current record if one exists. ErrNotFound from the read means
// the id is free to use.
func probeEntityID[T any, PT recordOf[T]](ctx context.Context, db dbkit.IDB, id string) error {
	_, err := readCurrentOne[T, PT](ctx, db, id, true)
	if err == nil {
		return NewError(ErrConflict, "entity id is already in use").
			WithEntity(PT(new(T)).EntityKind(), id)
	}
	if IsNotFound(err) {
		return nil
	}
	return err
}
