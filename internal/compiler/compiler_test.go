package compiler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/cache"
	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/config"
)

func testSchema(t *testing.T) *catalog.GraphSchema {
	t.Helper()
	schema := catalog.NewGraphSchema(1, "db")

	userID, err := catalog.NewIdentifier([]string{"user_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "User", Database: "db", Table: "users", ID: userID,
		PropertyMappings: map[string]catalog.PropertyMapping{
			"user_id": catalog.NewColumnMapping("user_id"),
			"name":    catalog.NewColumnMapping("name"),
		},
	}))
	return schema
}

func testCompiler(t *testing.T) *Compiler {
	t.Helper()
	handle := catalog.NewSchemaHandle(testSchema(t))
	cfg := &config.Config{}
	cfg.Planner.MaxCTEDepth = 100
	cfg.Planner.MaxInferredTypes = 8
	cfg.Planner.MaxHeterogeneousVLPLength = 3
	return New(handle, cache.NewQueryCache(10, time.Minute), cfg, nil, nil)
}

func TestCompileSimpleQuery(t *testing.T) {
	c := testCompiler(t)

	resp, err := c.Compile(context.Background(), Request{QueryText: "MATCH (u:User) RETURN u.name AS name"})
	require.NoError(t, err)
	assert.Contains(t, resp.SQLText, "AS name")
	require.Len(t, resp.ProjectionSchema, 1)
	assert.Equal(t, "name", resp.ProjectionSchema[0].Name)
}

func TestCompileCachesSecondCallVerbatim(t *testing.T) {
	c := testCompiler(t)

	first, err := c.Compile(context.Background(), Request{QueryText: "MATCH (u:User) RETURN u.name AS name"})
	require.NoError(t, err)

	second, err := c.Compile(context.Background(), Request{QueryText: "MATCH (u:User) RETURN u.name AS name"})
	require.NoError(t, err)

	assert.Equal(t, first.SQLText, second.SQLText)
	stats := c.Cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestCompileSurfacesParseErrorAsCompileError(t *testing.T) {
	c := testCompiler(t)

	_, err := c.Compile(context.Background(), Request{QueryText: "MATCH (u RETURN u"})
	require.Error(t, err)

	var compileErr *compileerr.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, compileerr.KindParse, compileErr.Kind)
}

func TestCompileHonorsPerRequestCTEDepthOverride(t *testing.T) {
	c := testCompiler(t)

	_, err := c.Compile(context.Background(), Request{
		QueryText:   "MATCH (u:User) WHERE u.name = 'a' WITH u WHERE u.name = 'b' RETURN u",
		MaxCTEDepth: 1,
	})
	require.Error(t, err)

	var renderErr *compileerr.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, compileerr.RenderCTEDepthExceeded, renderErr.SubKind)
}

func TestCompileViewParametersFlowIntoPlanCtx(t *testing.T) {
	schema := catalog.NewGraphSchema(1, "db")
	id, err := catalog.NewIdentifier([]string{"id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "Event", Database: "db", Table: "events", ID: id,
		ViewParameters: []string{"tenant"},
	}))

	cfg := &config.Config{}
	cfg.Planner.MaxCTEDepth = 100
	cfg.Planner.MaxInferredTypes = 8
	cfg.Planner.MaxHeterogeneousVLPLength = 3
	c := New(catalog.NewSchemaHandle(schema), nil, cfg, nil, nil)

	resp, err := c.Compile(context.Background(), Request{
		QueryText:      "MATCH (e:Event) RETURN e",
		ViewParameters: map[string]string{"tenant": "acme"},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.SQLText, "tenant = 'acme'")
}
