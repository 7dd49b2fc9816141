// ABOUTME: Tests for the agent registry
// ABOUTME: Covers lookup, duplicate handling and the built-in catalog

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGet(t *testing.T) {
	r := NewRegistry([]Agent{
		{ID: "alpha", Name: "Alpha", Endpoint: "http://example.com/alpha"},
		{ID: "beta", Name: "Beta", AccessSecret: "s3cret"},
	})

	a, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", a.Name)
	assert.False(t, a.Gated())

	b, err := r.Get("beta")
	require.NoError(t, err)
	assert.True(t, b.Gated())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryDuplicateIDsIgnored(t *testing.T) {
	r := NewRegistry([]Agent{
		{ID: "dup", Name: "First"},
		{ID: "dup", Name: "Second"},
	})

	a, err := r.Get("dup")
	require.NoError(t, err)
	assert.Equal(t, "First", a.Name, "first declaration wins")
	assert.Len(t, r.List(), 1)
}

func TestRegistryListOrder(t *testing.T) {
	r := NewRegistry([]Agent{
		{ID: "c"}, {ID: "a"}, {ID: "b"},
	})

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "b", list[2].ID)
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	require.NotEmpty(t, catalog)

	seen := make(map[string]bool)
	for _, a := range catalog {
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.Name)
		assert.NotEmpty(t, a.Endpoint)
		assert.False(t, seen[a.ID], "catalog ids are unique")
		seen[a.ID] = true
	}
}
