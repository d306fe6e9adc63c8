package joininfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/analyzer"
	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

func mustParse(t *testing.T, query string) *cypher.Query {
	t.Helper()
	q, err := cypher.Parse(query)
	require.NoError(t, err)
	return q
}

// buildPlan runs a query through the full builder + analyzer pipeline so the
// plan handed to Infer looks like what the real compiler produces: resolved
// ViewScans, tagged external reference counts, validated scope.
func buildPlan(t *testing.T, schema *catalog.GraphSchema, query string) (*planner.PlanCtx, planner.LogicalPlan) {
	t.Helper()
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)
	q := mustParse(t, query)

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)

	plan, err = analyzer.Run(ctx, plan, analyzer.DefaultPipeline())
	require.NoError(t, err)
	return ctx, plan
}

// findGraphRel returns the first GraphRel reachable from plan. When
// multiple pattern clauses combine via CrossJoin (e.g. a base MATCH
// followed by OPTIONAL MATCH), the GraphRel carrying the edge is the one
// of interest; a bare GraphNode sibling is skipped.
func findGraphRel(t *testing.T, plan planner.LogicalPlan) *planner.GraphRel {
	t.Helper()
	switch p := plan.(type) {
	case *planner.Projection:
		return findGraphRel(t, p.Input)
	case *planner.Filter:
		return findGraphRel(t, p.Input)
	case *planner.With:
		return findGraphRel(t, p.Input)
	case *planner.CrossJoin:
		for _, c := range p.Plans {
			if rel, ok := c.(*planner.GraphRel); ok {
				return rel
			}
		}
		t.Fatalf("no GraphRel among CrossJoin children")
		return nil
	case *planner.GraphRel:
		return p
	default:
		t.Fatalf("no GraphRel found in plan %T", plan)
		return nil
	}
}

func findGraphJoins(t *testing.T, plan planner.LogicalPlan) *planner.GraphJoins {
	t.Helper()
	return findAllGraphJoins(t, plan)[0]
}

// findAllGraphJoins collects every GraphJoins branch reachable from plan,
// descending through Union fan-out produced by ambiguous endpoint scans
// (ViewScan-of-Union combos expand into one GraphJoins per combination).
func findAllGraphJoins(t *testing.T, plan planner.LogicalPlan) []*planner.GraphJoins {
	t.Helper()
	switch p := plan.(type) {
	case *planner.Projection:
		return findAllGraphJoins(t, p.Input)
	case *planner.Filter:
		return findAllGraphJoins(t, p.Input)
	case *planner.With:
		return findAllGraphJoins(t, p.Input)
	case *planner.Union:
		var out []*planner.GraphJoins
		for _, b := range p.Branches {
			out = append(out, findAllGraphJoins(t, b)...)
		}
		return out
	case *planner.CrossJoin:
		var out []*planner.GraphJoins
		for _, c := range p.Plans {
			if _, isNode := c.(*planner.GraphNode); isNode {
				continue
			}
			out = append(out, findAllGraphJoins(t, c)...)
		}
		return out
	case *planner.GraphJoins:
		return []*planner.GraphJoins{p}
	default:
		t.Fatalf("no GraphJoins found in plan %T", plan)
		return nil
	}
}

func userPostSchema(t *testing.T) *catalog.GraphSchema {
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

	postID, err := catalog.NewIdentifier([]string{"post_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "Post", Database: "db", Table: "posts", ID: postID,
		PropertyMappings: map[string]catalog.PropertyMapping{
			"post_id": catalog.NewColumnMapping("post_id"),
			"title":   catalog.NewColumnMapping("title"),
		},
	}))

	fromID, err := catalog.NewIdentifier([]string{"author_id"})
	require.NoError(t, err)
	toID, err := catalog.NewIdentifier([]string{"post_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertRelationship(&catalog.RelationshipSchema{
		Type: "AUTHORED", Database: "db", Table: "post_authors",
		FromLabel: "User", ToLabel: "Post", FromID: fromID, ToID: toID,
	}))

	return schema
}

func TestInferStandardStrategyTwoJoins(t *testing.T) {
	schema := userPostSchema(t)
	ctx, plan := buildPlan(t, schema, "MATCH (u:User)-[r:AUTHORED]->(p:Post) RETURN u.name, p.title")

	out, err := Infer(ctx, plan)
	require.NoError(t, err)

	gj := findGraphJoins(t, out)
	assert.Equal(t, "u", gj.AnchorAlias)
	require.Len(t, gj.Joins, 2)
	assert.Equal(t, "r", gj.Joins[0].Alias)
	assert.Equal(t, "p", gj.Joins[1].Alias)
	assert.Equal(t, planner.JoinInner, gj.Joins[0].Kind)
}

func TestInferFKEdgeStrategyOneJoin(t *testing.T) {
	schema := catalog.NewGraphSchema(1, "graph")
	userID, err := catalog.NewIdentifier([]string{"user_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "User", Database: "db", Table: "users", ID: userID,
	}))

	postID, err := catalog.NewIdentifier([]string{"post_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "Post", Database: "db", Table: "posts", ID: postID,
	}))

	authorFK, err := catalog.NewIdentifier([]string{"author_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertRelationship(&catalog.RelationshipSchema{
		Type: "AUTHORED", Database: "db", Table: "posts", IsFKEdge: true,
		FromLabel: "User", ToLabel: "Post", FromID: authorFK, ToID: postID,
	}))

	ctx, plan := buildPlan(t, schema, "MATCH (u:User)-[:AUTHORED]->(p:Post) RETURN u, p")

	out, err := Infer(ctx, plan)
	require.NoError(t, err)

	gj := findGraphJoins(t, out)
	assert.Equal(t, "u", gj.AnchorAlias)
	require.Len(t, gj.Joins, 1)
	assert.Equal(t, "p", gj.Joins[0].Alias)
}

func TestInferDenormalizedBothStrategyOneJoin(t *testing.T) {
	schema := catalog.NewGraphSchema(1, "graph")

	fromID, err := catalog.NewIdentifier([]string{"origin_code"})
	require.NoError(t, err)
	toID, err := catalog.NewIdentifier([]string{"dest_code"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "Airport", Database: "db", Table: "flights", ID: fromID,
		IsDenormalized: true,
		FromProperties: map[string]catalog.PropertyMapping{"code": catalog.NewColumnMapping("origin_code")},
		ToProperties:   map[string]catalog.PropertyMapping{"code": catalog.NewColumnMapping("dest_code")},
	}))

	require.NoError(t, schema.InsertRelationship(&catalog.RelationshipSchema{
		Type: "FLIGHT", Database: "db", Table: "flights",
		FromLabel: "Airport", ToLabel: "Airport", FromID: fromID, ToID: toID,
		FromNodeProperties: map[string]catalog.PropertyMapping{"code": catalog.NewColumnMapping("origin_code")},
		ToNodeProperties:   map[string]catalog.PropertyMapping{"code": catalog.NewColumnMapping("dest_code")},
	}))

	ctx, plan := buildPlan(t, schema, "MATCH (a:Airport)-[:FLIGHT]->(b:Airport) RETURN a.code, b.code")

	out, err := Infer(ctx, plan)
	require.NoError(t, err)

	branches := findAllGraphJoins(t, out)
	require.NotEmpty(t, branches)
	for _, gj := range branches {
		require.Len(t, gj.Joins, 1)
		assert.Equal(t, "b", gj.Joins[0].Alias)
	}
}

func TestInferSingleTableScanOptimization(t *testing.T) {
	schema := userPostSchema(t)
	ctx, plan := buildPlan(t, schema, "MATCH (:User)-[r:AUTHORED]->(:Post) RETURN r")

	out, err := Infer(ctx, plan)
	require.NoError(t, err)

	gj := findGraphJoins(t, out)
	assert.Equal(t, "r", gj.AnchorAlias)
	assert.Empty(t, gj.Joins)
}

func TestInferSingleTableScanSkippedWhenEndpointReferenced(t *testing.T) {
	schema := userPostSchema(t)
	ctx, plan := buildPlan(t, schema, "MATCH (u:User)-[r:AUTHORED]->(:Post) RETURN u.name")

	out, err := Infer(ctx, plan)
	require.NoError(t, err)

	gj := findGraphJoins(t, out)
	assert.Equal(t, "u", gj.AnchorAlias)
	assert.NotEmpty(t, gj.Joins)
}

func TestInferMultiHopChainOrdersLeftToRight(t *testing.T) {
	schema := catalog.NewGraphSchema(1, "graph")

	userID, err := catalog.NewIdentifier([]string{"user_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{Label: "User", Database: "db", Table: "users", ID: userID}))

	postID, err := catalog.NewIdentifier([]string{"post_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{Label: "Post", Database: "db", Table: "posts", ID: postID}))

	commentID, err := catalog.NewIdentifier([]string{"comment_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{Label: "Comment", Database: "db", Table: "comments", ID: commentID}))

	authorFrom, err := catalog.NewIdentifier([]string{"author_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertRelationship(&catalog.RelationshipSchema{
		Type: "AUTHORED", Database: "db", Table: "post_authors",
		FromLabel: "User", ToLabel: "Post", FromID: authorFrom, ToID: postID,
	}))

	commentedFrom, err := catalog.NewIdentifier([]string{"post_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertRelationship(&catalog.RelationshipSchema{
		Type: "HAS_COMMENT", Database: "db", Table: "post_comments",
		FromLabel: "Post", ToLabel: "Comment", FromID: commentedFrom, ToID: commentID,
	}))

	ctx, plan := buildPlan(t, schema,
		"MATCH (u:User)-[:AUTHORED]->(p:Post)-[:HAS_COMMENT]->(c:Comment) RETURN u.user_id, c.comment_id")

	out, err := Infer(ctx, plan)
	require.NoError(t, err)

	gj := findGraphJoins(t, out)
	assert.Equal(t, "u", gj.AnchorAlias)
	require.Len(t, gj.Joins, 4)
	// Position 1 is the first edge (anonymous, builder-generated alias),
	// position 2 is "p", position 3 is the second edge, position 4 is "c" —
	// pattern order preserved left to right.
	assert.Equal(t, "p", gj.Joins[1].Alias)
	assert.Equal(t, "c", gj.Joins[3].Alias)
}

func TestInferDeferredForVariableLengthEdge(t *testing.T) {
	schema := userPostSchema(t)
	ctx, plan := buildPlan(t, schema, "MATCH (u:User)-[:AUTHORED*1..3]->(p:Post) RETURN u, p")

	rel := findGraphRel(t, plan)
	out, err := Infer(ctx, plan)
	require.NoError(t, err)

	outRel := findGraphRel(t, out)
	assert.Same(t, rel, outRel)
}

func TestInferOptionalEdgeUsesLeftJoin(t *testing.T) {
	schema := userPostSchema(t)
	ctx, plan := buildPlan(t, schema, "MATCH (u:User) OPTIONAL MATCH (u)-[:AUTHORED]->(p:Post) RETURN u, p")

	out, err := Infer(ctx, plan)
	require.NoError(t, err)

	gj := findGraphJoins(t, out)
	for _, j := range gj.Joins {
		assert.Equal(t, planner.JoinLeft, j.Kind)
	}
}
