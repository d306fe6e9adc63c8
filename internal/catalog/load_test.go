package catalog

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
      property_mappings:
        name: full_name
    - label: Company
      database: graph
      table: companies
      id_column: [company_id, region]
  edges:
    - type: WORKS_AT
      database: graph
      table: employment
      from_id: person_id
      to_id: [company_id, region]
      from_node: Person
      to_node: Company
      property_mappings:
        since: started_at
    - type: MENTIONS
      database: graph
      table: article_mentions
      from_id: article_id
      to_id: entity_id
      from_node: Article
      to_node: Entity
      from_node_properties:
        title: article_title
      to_node_properties:
        name: entity_name
`

func TestLoadFromBytesBasic(t *testing.T) {
	result, err := LoadFromBytes(context.Background(), []byte(sampleYAML), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Schema)

	person, err := result.Schema.GetNodeSchema("Person")
	require.NoError(t, err)
	assert.False(t, person.ID.IsComposite())
	assert.Equal(t, "person_id", person.ID.Columns()[0])
	assert.Equal(t, "full_name", person.PropertyMappings["name"].Column)

	company, err := result.Schema.GetNodeSchema("Company")
	require.NoError(t, err)
	assert.True(t, company.ID.IsComposite())
	assert.Equal(t, []string{"company_id", "region"}, company.ID.Columns())
}

func TestLoadFromBytesDenormalizedNodes(t *testing.T) {
	result, err := LoadFromBytes(context.Background(), []byte(sampleYAML), nil, nil)
	require.NoError(t, err)

	article, err := result.Schema.GetNodeSchema("Article")
	require.NoError(t, err)
	assert.True(t, article.IsDenormalized)
	assert.Equal(t, "article_mentions", article.DenormalizedSourceTable)
	assert.Equal(t, "article_title", article.PropertyMappings["title"].Column)

	entity, err := result.Schema.GetNodeSchema("Entity")
	require.NoError(t, err)
	assert.True(t, entity.IsDenormalized)
	assert.Equal(t, "entity_name", entity.PropertyMappings["name"].Column)
}

func TestLoadFromBytesRejectsDenormalizedNodeMissingProperties(t *testing.T) {
	badYAML := `
name: test_graph
graph_schema:
  nodes:
    - label: Person
      database: graph
      table: persons
      id_column: person_id
  edges:
    - type: MENTIONS
      database: graph
      table: article_mentions
      from_id: article_id
      to_id: entity_id
      from_node: Article
      to_node: Entity
      to_node_properties:
        name: entity_name
`
	_, err := LoadFromBytes(context.Background(), []byte(badYAML), nil, nil)
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, ErrDenormalizedMetadataMissing, schemaErr.Kind)
}

// TestLoadFromBytesRejectsDenormalizedNodeMissingOnOneSideOfTwoEdges covers a
// denormalized label referenced from both positions across two separate
// relationships rather than a single self-referencing one: each endpoint is
// validated independently, so supplying the property map on only one of the
// two edges is still rejected.
func TestLoadFromBytesRejectsDenormalizedNodeMissingOnOneSideOfTwoEdges(t *testing.T) {
	badYAML := `
name: test_graph
graph_schema:
  nodes:
    - label: Person
      database: graph
      table: persons
      id_column: person_id
  edges:
    - type: AUTHORED
      database: graph
      table: authored
      from_id: person_id
      to_id: article_id
      from_node: Person
      to_node: Article
      to_node_properties:
        title: article_title
    - type: CITES
      database: graph
      table: citations
      from_id: article_id
      to_id: cited_id
      from_node: Article
      to_node: Article
`
	_, err := LoadFromBytes(context.Background(), []byte(badYAML), nil, nil)
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, ErrDenormalizedMetadataMissing, schemaErr.Kind)
}

func TestLoadFromBytesRejectsEmptyNodes(t *testing.T) {
	_, err := LoadFromBytes(context.Background(), []byte("name: empty\ngraph_schema:\n  nodes: []\n  edges: []\n"), nil, nil)
	assert.ErrorIs(t, err, errEmptyNodes)
}

func TestLoadFromBytesRejectsMissingIDColumn(t *testing.T) {
	badYAML := `
name: bad
graph_schema:
  nodes:
    - label: Thing
      database: graph
      table: things
  edges: []
`
	_, err := LoadFromBytes(context.Background(), []byte(badYAML), nil, nil)
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, ErrInvalidIdentifier, schemaErr.Kind)
}

type fakeColumnLister struct {
	columns []string
	err     error
}

func (f *fakeColumnLister) ListColumns(ctx context.Context, database, table string) ([]string, error) {
	return f.columns, f.err
}

func TestLoadFromBytesAutoDiscovery(t *testing.T) {
	yamlDoc := `
name: auto
graph_schema:
  nodes:
    - label: Person
      database: graph
      table: persons
      id_column: person_id
      auto_discover_columns: true
      exclude_columns: [internal_flag]
      naming_convention: camelCase
  edges: []
`
	lister := &fakeColumnLister{columns: []string{"person_id", "first_name", "internal_flag"}}
	result, err := LoadFromBytes(context.Background(), []byte(yamlDoc), lister, nil)
	require.NoError(t, err)

	person, err := result.Schema.GetNodeSchema("Person")
	require.NoError(t, err)
	assert.Equal(t, "first_name", person.PropertyMappings["firstName"].Column)
	_, excluded := person.PropertyMappings["internalFlag"]
	assert.False(t, excluded)
}

type fakeEngineProbe struct {
	info          EngineInfo
	finalSupport  bool
}

func (f *fakeEngineProbe) DetectEngine(ctx context.Context, database, table string) (EngineInfo, error) {
	return f.info, nil
}

func (f *fakeEngineProbe) ProbeFinalSupport(ctx context.Context, database, table string) (bool, error) {
	return f.finalSupport, nil
}

func TestLoadFromBytesEngineDetectionOther(t *testing.T) {
	yamlDoc := `
name: engines
graph_schema:
  nodes:
    - label: Person
      database: graph
      table: persons
      id_column: person_id
  edges: []
`
	probe := &fakeEngineProbe{info: ParseEngineSpec("Memory", "Memory"), finalSupport: false}
	result, err := LoadFromBytes(context.Background(), []byte(yamlDoc), nil, probe)
	require.NoError(t, err)

	person, err := result.Schema.GetNodeSchema("Person")
	require.NoError(t, err)
	assert.False(t, person.ShouldUseFinal())
}
