package authx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewStrategyTable tests table construction and duplicate rejection
func TestNewStrategyTable(t *testing.T) {
	t.Run("Distinct kinds", func(t *testing.T) {
		table, err := NewStrategyTable(
			NewStoredCredentialStrategy(AuthorityKindEmail),
			NewStoredCredentialStrategy(AuthorityKindPassword),
		)
		require.NoError(t, err)
		assert.ElementsMatch(t, []AuthorityKind{AuthorityKindEmail, AuthorityKindPassword}, table.Kinds())
	})

	t.Run("Duplicate kind fails", func(t *testing.T) {
		_, err := NewStrategyTable(
			NewStoredCredentialStrategy(AuthorityKindEmail),
			NewStoredCredentialStrategy(AuthorityKindEmail),
		)
		assert.True(t, IsValidation(err))
	})

	t.Run("Empty table", func(t *testing.T) {
		table, err := NewStrategyTable()
		require.NoError(t, err)
		assert.Empty(t, table.Kinds())
	})
}

// TestStrategyTableFor tests strategy lookup
func TestStrategyTableFor(t *testing.T) {
	table, err := NewStrategyTable(NewStoredCredentialStrategy(AuthorityKindEmail))
	require.NoError(t, err)

	s, err := table.For(AuthorityKindEmail)
	require.NoError(t, err)
	assert.Equal(t, AuthorityKindEmail, s.Kind())

	_, err = table.For(AuthorityKindOpenID)
	assert.True(t, IsValidation(err))
}

// TestDefaultStrategies tests the built-in table
func TestDefaultStrategies(t *testing.T) {
	table := DefaultStrategies()
	for _, kind := range []AuthorityKind{AuthorityKindEmail, AuthorityKindPassword, AuthorityKindOpenID} {
		s, err := table.For(kind)
		assert.NoError(t, err)
		assert.Equal(t, kind, s.Kind())
	}
}
