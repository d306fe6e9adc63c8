package procedures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
)

func sampleSchema(t *testing.T) *catalog.GraphSchema {
	t.Helper()
	schema := catalog.NewGraphSchema(1, "graph")
	id, err := catalog.NewIdentifier([]string{"person_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "Person",
		Table: "persons",
		ID:    id,
		PropertyMappings: map[string]catalog.PropertyMapping{
			"name": catalog.NewColumnMapping("full_name"),
		},
	}))
	return schema
}

func TestRegistryCallKnownProcedure(t *testing.T) {
	r := NewRegistry("0.1.0")
	schema := sampleSchema(t)

	result, err := r.Call([]string{"db"}, "labels", schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"Person"}, result)
}

func TestRegistryCallUnknownProcedure(t *testing.T) {
	r := NewRegistry("0.1.0")
	schema := sampleSchema(t)

	_, err := r.Call([]string{"apoc", "ghost"}, "nope", schema)
	assert.Error(t, err)
}

func TestRegistryKnown(t *testing.T) {
	r := NewRegistry("0.1.0")
	assert.True(t, r.Known([]string{"apoc", "meta"}, "schema"))
	assert.False(t, r.Known([]string{"apoc", "meta"}, "bogus"))
}

func TestApocMetaSchemaShape(t *testing.T) {
	schema := sampleSchema(t)
	result := ApocMetaSchema(schema)

	person, ok := result["Person"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "node", person["type"])
}
