package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

func TestSchemaFilteringLabelLessUnionAll(t *testing.T) {
	schema := userPostSchema(t)
	q := mustParse(t, "MATCH (n) RETURN n")
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)

	plan, err = RunSchemaFiltering(ctx, plan)
	require.NoError(t, err)

	proj, ok := plan.(*planner.Projection)
	require.True(t, ok)
	node, ok := proj.Input.(*planner.GraphNode)
	require.True(t, ok)
	union, ok := node.Scan.(*planner.Union)
	require.True(t, ok)
	assert.Equal(t, planner.UnionAll, union.Kind)
	require.Len(t, union.Branches, 2)

	var tables []string
	for _, b := range union.Branches {
		vs := b.(*planner.ViewScan)
		tables = append(tables, vs.Table)
	}
	assert.ElementsMatch(t, []string{"users", "posts"}, tables)
}

func TestSchemaFilteringSingleLabelCatalog(t *testing.T) {
	schema := catalog.NewGraphSchema(1, "graph")
	id, err := catalog.NewIdentifier([]string{"id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{Label: "Only", Database: "db", Table: "onlys", ID: id}))

	q := mustParse(t, "MATCH (n) RETURN n")
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)

	plan, err = RunSchemaFiltering(ctx, plan)
	require.NoError(t, err)

	proj := plan.(*planner.Projection)
	node := proj.Input.(*planner.GraphNode)
	scan, ok := node.Scan.(*planner.ViewScan)
	require.True(t, ok)
	assert.Equal(t, "onlys", scan.Table)
}
