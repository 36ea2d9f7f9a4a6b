package authx

import (
	"context"
	"fmt"
)

// AuthorityKind names the pluggable login mechanism an authority uses. Every
// authority record carries a kind, and the kind selects the Strategy that
// knows how to work with that authority's credentials.
type AuthorityKind string

const (
	AuthorityKindEmail    AuthorityKind = "email"
	AuthorityKindPassword AuthorityKind = "password"
	AuthorityKindOpenID   AuthorityKind = "openid"
)

// Strategy implements the credential handling for one authority kind. The
// set of strategies is closed at startup; an authority whose kind has no
// registered strategy cannot resolve credentials.
type Strategy interface {
	// Kind returns the authority kind this strategy serves.
	Kind() AuthorityKind

	// Credentials returns the current credentials belonging to an authority
	// of this kind.
	Credentials(ctx context.Context, e *Executor, authorityID string) ([]*CredentialRecord, error)

	// CredentialByExternalUserID returns the enabled credential binding the
	// authority's external user id, or nil if none exists.
	CredentialByExternalUserID(ctx context.Context, e *Executor, authorityID, externalUserID string) (*CredentialRecord, error)
}

// StrategyTable holds the strategies registered at startup, keyed by
// authority kind. The table never changes after construction.
type StrategyTable struct {
	byKind map[AuthorityKind]Strategy
}

// NewStrategyTable builds a StrategyTable from the given strategies.
// Registering two strategies for the same kind is a configuration error.
func NewStrategyTable(strategies ...Strategy) (*StrategyTable, error) {
	t := &StrategyTable{byKind: make(map[AuthorityKind]Strategy, len(strategies))}
	for _, s := range strategies {
		if _, ok := t.byKind[s.Kind()]; ok {
			return nil, NewError(ErrValidation, fmt.Sprintf("duplicate strategy for authority kind %q", s.Kind()))
		}
		t.byKind[s.Kind()] = s
	}
	return t, nil
}

// Kinds returns the authority kinds the table has strategies for.
func (t *StrategyTable) Kinds() []AuthorityKind {
	out := make([]AuthorityKind, 0, len(t.byKind))
	for k := range t.byKind {
		out = append(out, k)
	}
	return out
}

// For returns the strategy registered for a kind, or an error if none is.
func (t *StrategyTable) For(kind AuthorityKind) (Strategy, error) {
	s, ok := t.byKind[kind]
	if !ok {
		return nil, NewError(ErrValidation, fmt.Sprintf("no strategy registered for authority kind %q", kind))
	}
	return s, nil
}

// ForAuthority loads the authority and returns the strategy for its kind.
func (t *StrategyTable) ForAuthority(ctx context.Context, e *Executor, authorityID string) (Strategy, *AuthorityRecord, error) {
	authority, err := e.Authority(ctx, authorityID)
	if err != nil {
		return nil, nil, err
	}
	s, err := t.For(authority.Kind)
	if err != nil {
		return nil, nil, err
	}
	return s, authority, nil
}

// StoredCredentialStrategy is the store-backed strategy shared by authority
// kinds whose credentials live entirely in the credential records. Strategies
// with external lookups embed it and override what they need.
type StoredCredentialStrategy struct {
	kind AuthorityKind
}

// NewStoredCredentialStrategy creates a store-backed strategy for a kind.
func NewStoredCredentialStrategy(kind AuthorityKind) *StoredCredentialStrategy {
	return &StoredCredentialStrategy{kind: kind}
}

func (s *StoredCredentialStrategy) Kind() AuthorityKind { return s.kind }

func (s *StoredCredentialStrategy) Credentials(ctx context.Context, e *Executor, authorityID string) ([]*CredentialRecord, error) {
	ids, err := e.AuthorityCredentialIDs(ctx, authorityID)
	if err != nil {
		return nil, err
	}
	return e.Credentials(ctx, ids)
}

func (s *StoredCredentialStrategy) CredentialByExternalUserID(ctx context.Context, e *Executor, authorityID, externalUserID string) (*CredentialRecord, error) {
	return e.CredentialByAuthorityAndExternalUserID(ctx, authorityID, externalUserID)
}

// DefaultStrategies returns a table with store-backed strategies for the
// built-in authority kinds.
func DefaultStrategies() *StrategyTable {
	t, err := NewStrategyTable(
		NewStoredCredentialStrategy(AuthorityKindEmail),
		NewStoredCredentialStrategy(AuthorityKindPassword),
		NewStoredCredentialStrategy(AuthorityKindOpenID),
	)
	if err != nil {
		panic(err)
	}
	return t
}
