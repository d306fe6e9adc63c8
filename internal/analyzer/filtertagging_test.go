package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

func TestFilterTaggingResolvesPropertyAccess(t *testing.T) {
	schema := userPostSchema(t)
	q := mustParse(t, "MATCH (u:User) WHERE u.name = 'Ada' AND u.user_id = 7 RETURN u.name")
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)
	plan, err = RunSchemaFiltering(ctx, plan)
	require.NoError(t, err)
	plan, err = RunFilterTagging(ctx, plan)
	require.NoError(t, err)

	proj := plan.(*planner.Projection)
	filter := proj.Input.(*planner.Filter)

	and, ok := filter.Pred.(planner.And)
	require.True(t, ok)
	require.Len(t, and.Operands, 2)

	first := and.Operands[0].(planner.Eq)
	col := first.Left.(planner.ColumnRef)
	assert.Equal(t, "u", col.Alias)
	assert.Equal(t, "name", col.Column)

	second := and.Operands[1].(planner.Eq)
	col2 := second.Left.(planner.ColumnRef)
	assert.Equal(t, "user_id", col2.Column)

	projCol := proj.Items[0].Expr.(planner.ColumnRef)
	assert.Equal(t, "name", projCol.Column)
}

func TestFilterTaggingCompositeTupleEquality(t *testing.T) {
	schema := catalog.NewGraphSchema(1, "graph")
	composite, err := catalog.NewIdentifier([]string{"tenant_id", "order_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "Order", Database: "db", Table: "orders", ID: composite,
	}))

	q := mustParse(t, "MATCH (a:Order), (b:Order) WHERE a = b RETURN a")
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)
	plan, err = RunFilterTagging(ctx, plan)
	require.NoError(t, err)

	proj := plan.(*planner.Projection)
	filter := proj.Input.(*planner.Filter)

	tupleEq, ok := filter.Pred.(planner.TupleEq)
	require.True(t, ok)
	assert.Equal(t, "a", tupleEq.Left.Alias)
	assert.Equal(t, "b", tupleEq.Right.Alias)
	assert.Equal(t, []string{"tenant_id", "order_id"}, tupleEq.Left.Columns)
}
