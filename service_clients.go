package authx

import "context"

// CreateClient describes a client application to create.
type CreateClient struct {
	ID          string
	Enabled     bool
	Name        string
	Description string
	Secrets     []string
	URLs        []string

	Administration []AdministrationDelegation
}

// UpdateClient describes changes to a client. Nil fields keep their current
// value. Changing Secrets requires secret-write access on the client.
type UpdateClient struct {
	ID          string
	Enabled     *bool
	Name        *string
	Description *string
	Secrets     *[]string
	URLs        *[]string
}

// CreateClient creates a client application.
func (s *Service) CreateClient(ctx context.Context, callerAuthorizationID string, in CreateClient) (*ClientRecord, error) {
	var out *ClientRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		if err := tx.requireCreateAccess(ctx, e, caller, ResourceRef{Kind: KindClient}); err != nil {
			return err
		}

		id, err := resolveEntityID[ClientRecord](ctx, tx, in.ID)
		if err != nil {
			return err
		}
		rec := &ClientRecord{
			RecordMeta:  RecordMeta{EntityID: id},
			Enabled:     in.Enabled,
			Name:        in.Name,
			Description: in.Description,
			Secrets:     in.Secrets,
			URLs:        in.URLs,
		}
		if err := writeRecord[ClientRecord](ctx, tx.db, rec, tx.writeMeta(caller.EntityID)); err != nil {
			return err
		}
		if err := tx.delegate(ctx, e, caller, rec.ResourceRef(), in.Administration); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateClient replaces the client's current record with an updated one.
func (s *Service) UpdateClient(ctx context.Context, callerAuthorizationID string, in UpdateClient) (*ClientRecord, error) {
	var out *ClientRecord
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := readCurrentOne[ClientRecord](ctx, tx.db, in.ID, true)
		if err != nil {
			return err
		}

		action := ActionWriteBasic
		if in.Secrets != nil {
			action.Secrets = "w"
		}
		if err := tx.requireAccessible(ctx, e, caller, current, action); err != nil {
			return err
		}

		next := *current
		if in.Enabled != nil {
			next.Enabled = *in.Enabled
		}
		if in.Name != nil {
			next.Name = *in.Name
		}
		if in.Description != nil {
			next.Description = *in.Description
		}
		if in.Secrets != nil {
			next.Secrets = *in.Secrets
		}
		if in.URLs != nil {
			next.URLs = *in.URLs
		}
		if err := writeRecord[ClientRecord](ctx, tx.db, &next, tx.writeMeta(caller.EntityID)); err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadClient returns the client's current record.
func (s *Service) ReadClient(ctx context.Context, callerAuthorizationID, id string) (*ClientRecord, error) {
	var out *ClientRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		rec, err := e.Client(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, rec, ActionReadBasic); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadClients returns the current records of several clients at once.
func (s *Service) ReadClients(ctx context.Context, callerAuthorizationID string, ids []string) ([]*ClientRecord, error) {
	var out []*ClientRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		recs, err := e.Clients(ctx, ids)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := tx.requireAccessible(ctx, e, caller, rec, ActionReadBasic); err != nil {
				return err
			}
		}
		out = recs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClientRecords returns the client's record history, newest first.
func (s *Service) ClientRecords(ctx context.Context, callerAuthorizationID, id string, filter RecordFilter) ([]*ClientRecord, error) {
	var out []*ClientRecord
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		current, err := e.Client(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.requireAccessible(ctx, e, caller, current, ActionReadBasic); err != nil {
			return err
		}
		out, err = recordHistory[ClientRecord](ctx, tx.db, id, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
