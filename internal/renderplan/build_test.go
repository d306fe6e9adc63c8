package renderplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/analyzer"
	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/joininfer"
	"github.com/cyphergraph/cyphergraph/internal/pathexpand"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// followsSchema gives every test in this file a two-label, one-relationship
// graph: User-FOLLOWS->User, with a property on User so flattened property
// columns actually show up in the resulting CTEs.
func followsSchema(t *testing.T) *catalog.GraphSchema {
	t.Helper()
	schema := catalog.NewGraphSchema(1, "graph")

	userID, err := catalog.NewIdentifier([]string{"user_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "User", Database: "db", Table: "users", ID: userID,
		PropertyMappings: map[string]catalog.PropertyMapping{
			"user_id": catalog.NewColumnMapping("user_id"),
			"name":    catalog.NewColumnMapping("name"),
		},
	}))

	followerID, err := catalog.NewIdentifier([]string{"follower_id"})
	require.NoError(t, err)
	followeeID, err := catalog.NewIdentifier([]string{"followee_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertRelationship(&catalog.RelationshipSchema{
		Type: "FOLLOWS", Database: "db", Table: "follows",
		FromLabel: "User", ToLabel: "User", FromID: followerID, ToID: followeeID,
	}))

	return schema
}

// buildPlan runs query through the full pipeline up to (and including) path
// expansion, the same sequence internal/compiler drives before handing the
// plan to Build.
func buildPlan(t *testing.T, schema *catalog.GraphSchema, maxCTEDepth int, query string) (*planner.PlanCtx, planner.LogicalPlan) {
	t.Helper()
	ctx := planner.NewPlanCtx(schema, 8, maxCTEDepth, 3)
	q, err := cypher.Parse(query)
	require.NoError(t, err)

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)

	plan, err = analyzer.Run(ctx, plan, analyzer.DefaultPipeline())
	require.NoError(t, err)

	plan, err = joininfer.Infer(ctx, plan)
	require.NoError(t, err)

	plan, err = pathexpand.Expand(ctx, plan)
	require.NoError(t, err)

	return ctx, plan
}

func cteNames(rp *RenderPlan) []string {
	names := make([]string, len(rp.CTEs))
	for i, cte := range rp.CTEs {
		names[i] = cte.Name
	}
	return names
}

func TestBuildSimpleMatchReturnProducesJoinAndProject(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 8, "MATCH (u:User)-[:FOLLOWS]->(f:User) RETURN u, f")

	rp, err := Build(ctx, plan)
	require.NoError(t, err)

	require.NotEmpty(t, rp.CTEs)
	require.NotEmpty(t, rp.Root)
	assert.Contains(t, cteNames(rp), rp.Root)

	last := rp.CTEs[len(rp.CTEs)-1]
	assert.Equal(t, rp.Root, last.Name, "topological order should place Root last")

	require.Len(t, rp.FinalItems, 2)
}

func TestBuildFilterReferencesPriorCTE(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 8, "MATCH (u:User)-[:FOLLOWS]->(f:User) WHERE u.name = 'a' RETURN u, f")

	rp, err := Build(ctx, plan)
	require.NoError(t, err)

	var foundFilter bool
	for _, cte := range rp.CTEs {
		if fb, ok := cte.Body.(FilterBody); ok {
			foundFilter = true
			assert.Contains(t, cteNames(rp), fb.Source)
			require.NotEmpty(t, cte.DependsOn)
		}
	}
	assert.True(t, foundFilter, "expected a FilterBody CTE for the WHERE clause")
}

func TestBuildHomogeneousVariableLengthProducesRecursiveBody(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 8, "MATCH (u:User)-[:FOLLOWS*1..3]->(f:User) RETURN u, f")

	rp, err := Build(ctx, plan)
	require.NoError(t, err)

	var foundRecursive bool
	for _, cte := range rp.CTEs {
		if _, ok := cte.Body.(RecursiveBody); ok {
			foundRecursive = true
		}
	}
	assert.True(t, foundRecursive, "expected a RecursiveBody CTE for the homogeneous variable-length path")
}

func TestBuildHeterogeneousVariableLengthProducesEnumeratedBody(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 8, "MATCH (u:User)-[:FOLLOWS*1..2]->(f) RETURN f")

	rp, err := Build(ctx, plan)
	require.NoError(t, err)

	var foundEnumerated bool
	for _, cte := range rp.CTEs {
		if _, ok := cte.Body.(EnumeratedPathBody); ok {
			foundEnumerated = true
		}
	}
	assert.True(t, foundEnumerated, "expected an EnumeratedPathBody CTE for the heterogeneous variable-length path")
}

func TestBuildRejectsExcessiveCTEDepth(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 1,
		"MATCH (u:User)-[:FOLLOWS]->(f:User) WHERE u.name = 'a' WITH u, f WHERE f.name = 'b' RETURN u, f")

	_, err := Build(ctx, plan)
	require.Error(t, err)

	var renderErr *compileerr.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, compileerr.RenderCTEDepthExceeded, renderErr.SubKind)
}

func TestFinalItemsUnwrapsOrderBySkipLimit(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 8,
		"MATCH (u:User)-[:FOLLOWS]->(f:User) RETURN u, f ORDER BY u.name SKIP 1 LIMIT 10")

	rp, err := Build(ctx, plan)
	require.NoError(t, err)

	require.Len(t, rp.FinalItems, 2)
}

func TestFinalItemsTakesFirstUnionBranch(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 8,
		"MATCH (u:User) RETURN u.name AS name UNION MATCH (f:User) RETURN f.name AS name")

	rp, err := Build(ctx, plan)
	require.NoError(t, err)

	require.Len(t, rp.FinalItems, 1)
	assert.Equal(t, "name", rp.FinalItems[0].Alias)
}
