package catalogstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: test_graph
graph_schema:
  nodes:
    - label: Person
      database: graph
      table: persons
      id_column: person_id
  edges: []
`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreLoadOnEmptyStoreReportsAbsent(t *testing.T) {
	s := openTestStore(t)

	raw, ok, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, raw)
}

func TestStoreSaveThenLoadRoundTrips(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save([]byte(sampleYAML)))

	raw, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleYAML, string(raw))
}

func TestStoreLoadSchemaReValidatesSnapshot(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save([]byte(sampleYAML)))

	schema, err := s.LoadSchema(context.Background(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, schema)
	_, ok := schema.Nodes["Person"]
	assert.True(t, ok)
}

func TestStoreLoadSchemaWithNoSnapshotErrors(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadSchema(context.Background(), nil, nil)
	assert.Error(t, err)
}
