package pathexpand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/analyzer"
	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/joininfer"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

func mustParse(t *testing.T, query string) *cypher.Query {
	t.Helper()
	q, err := cypher.Parse(query)
	require.NoError(t, err)
	return q
}

// buildPlan runs a query through the full builder + analyzer + join-infer
// pipeline, so the plan handed to Expand looks like what the compiler
// actually produces by the time path expansion runs: every chain without a
// variable-length or shortest-path edge already flattened to GraphJoins.
func buildPlan(t *testing.T, schema *catalog.GraphSchema, maxHeteroVLPLen int, query string) (*planner.PlanCtx, planner.LogicalPlan) {
	t.Helper()
	ctx := planner.NewPlanCtx(schema, 8, 100, maxHeteroVLPLen)
	q := mustParse(t, query)

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)

	plan, err = analyzer.Run(ctx, plan, analyzer.DefaultPipeline())
	require.NoError(t, err)

	plan, err = joininfer.Infer(ctx, plan)
	require.NoError(t, err)

	return ctx, plan
}

func findHomogeneous(t *testing.T, plan planner.LogicalPlan) *planner.HomogeneousPath {
	t.Helper()
	switch p := plan.(type) {
	case *planner.Projection:
		return findHomogeneous(t, p.Input)
	case *planner.Filter:
		return findHomogeneous(t, p.Input)
	case *planner.With:
		return findHomogeneous(t, p.Input)
	case *planner.CrossJoin:
		for _, c := range p.Plans {
			if _, isNode := c.(*planner.GraphNode); isNode {
				continue
			}
			return findHomogeneous(t, c)
		}
	case *planner.HomogeneousPath:
		return p
	}
	t.Fatalf("no HomogeneousPath found in plan %T", plan)
	return nil
}

func findHeterogeneous(t *testing.T, plan planner.LogicalPlan) *planner.HeterogeneousPath {
	t.Helper()
	switch p := plan.(type) {
	case *planner.Projection:
		return findHeterogeneous(t, p.Input)
	case *planner.Filter:
		return findHeterogeneous(t, p.Input)
	case *planner.With:
		return findHeterogeneous(t, p.Input)
	case *planner.CrossJoin:
		for _, c := range p.Plans {
			if _, isNode := c.(*planner.GraphNode); isNode {
				continue
			}
			return findHeterogeneous(t, c)
		}
	case *planner.HeterogeneousPath:
		return p
	}
	t.Fatalf("no HeterogeneousPath found in plan %T", plan)
	return nil
}

// followsSchema declares a second, unrelated node label (Org) alongside
// User/FOLLOWS purely so an absent-label pattern node (e.g. `(f)`) stays
// genuinely ambiguous after schema filtering instead of collapsing to the
// single-label shortcut — keeping the heterogeneous-regime tests honest.
func followsSchema(t *testing.T) *catalog.GraphSchema {
	t.Helper()
	schema := catalog.NewGraphSchema(1, "graph")

	userID, err := catalog.NewIdentifier([]string{"user_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{
		Label: "User", Database: "db", Table: "users", ID: userID,
		PropertyMappings: map[string]catalog.PropertyMapping{"user_id": catalog.NewColumnMapping("user_id")},
	}))

	orgID, err := catalog.NewIdentifier([]string{"org_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{Label: "Org", Database: "db", Table: "orgs", ID: orgID}))

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

// authoredCommentedSchema mirrors the Rust source's two-hop multi-type
// fixture (test_enumerate_two_hop_multi_type): User-AUTHORED->Post and
// Post-HAS_COMMENT->Comment, with no relationship type shared between
// node types so only one path realizes each length.
func authoredCommentedSchema(t *testing.T) *catalog.GraphSchema {
	t.Helper()
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

	commentFrom, err := catalog.NewIdentifier([]string{"post_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertRelationship(&catalog.RelationshipSchema{
		Type: "HAS_COMMENT", Database: "db", Table: "post_comments",
		FromLabel: "Post", ToLabel: "Comment", FromID: commentFrom, ToID: commentID,
	}))

	return schema
}

func TestExpandHomogeneousBoundedVariableLength(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 3, "MATCH (u:User)-[:FOLLOWS*1..3]->(f:User) RETURN u, f")

	out, err := Expand(ctx, plan)
	require.NoError(t, err)

	hp := findHomogeneous(t, out)
	assert.Equal(t, "u", hp.StartAlias)
	assert.Equal(t, "f", hp.EndAlias)
	assert.Equal(t, 1, hp.MinHops)
	assert.Equal(t, 3, hp.MaxHops)
	assert.Equal(t, cypher.ShortestPathNone, hp.ShortestPath)
	assert.NotNil(t, hp.EdgeIdentity)
}

func TestExpandHomogeneousUnboundedMax(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 3, "MATCH (u:User)-[:FOLLOWS*2..]->(f:User) RETURN u, f")

	out, err := Expand(ctx, plan)
	require.NoError(t, err)

	hp := findHomogeneous(t, out)
	assert.Equal(t, 2, hp.MinHops)
	assert.Equal(t, -1, hp.MaxHops)
}

func TestExpandHomogeneousShortestPathTagged(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 3, "MATCH path = shortestPath((u:User)-[:FOLLOWS*]->(f:User)) RETURN path")

	out, err := Expand(ctx, plan)
	require.NoError(t, err)

	hp := findHomogeneous(t, out)
	assert.Equal(t, cypher.ShortestPathSingle, hp.ShortestPath)
	assert.Equal(t, "path", hp.PathVariable)
}

func TestExpandHeterogeneousAbsentEndLabel(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 3, "MATCH (u:User)-[:FOLLOWS*1..2]->(f) RETURN f")

	out, err := Expand(ctx, plan)
	require.NoError(t, err)

	hp := findHeterogeneous(t, out)
	require.NotEmpty(t, hp.Branches)
	for _, b := range hp.Branches {
		require.NotEmpty(t, b.Hops)
		for _, h := range b.Hops {
			assert.Equal(t, "FOLLOWS", h.RelType)
			assert.Equal(t, "User", h.NodeLabel)
		}
	}
}

func TestExpandHeterogeneousEnumeratesBothLengths(t *testing.T) {
	schema := authoredCommentedSchema(t)
	ctx, plan := buildPlan(t, schema, 3, "MATCH (u:User)-[:AUTHORED|HAS_COMMENT*1..2]->(x) RETURN x")

	out, err := Expand(ctx, plan)
	require.NoError(t, err)

	hp := findHeterogeneous(t, out)
	var oneHop, twoHop *planner.PathBranch
	for i := range hp.Branches {
		b := &hp.Branches[i]
		switch len(b.Hops) {
		case 1:
			oneHop = b
		case 2:
			twoHop = b
		}
	}
	require.NotNil(t, oneHop, "expected a length-1 branch (User-AUTHORED->Post)")
	require.NotNil(t, twoHop, "expected a length-2 branch (User-AUTHORED->Post-HAS_COMMENT->Comment)")

	assert.Equal(t, "AUTHORED", oneHop.Hops[0].RelType)
	assert.Equal(t, "Post", oneHop.Hops[0].NodeLabel)

	assert.Equal(t, "AUTHORED", twoHop.Hops[0].RelType)
	assert.Equal(t, "Post", twoHop.Hops[0].NodeLabel)
	assert.Equal(t, "HAS_COMMENT", twoHop.Hops[1].RelType)
	assert.Equal(t, "Comment", twoHop.Hops[1].NodeLabel)
}

func TestExpandHeterogeneousNoValidPathsYieldsNoBranches(t *testing.T) {
	// HAS_COMMENT only originates from Post, never from User, so no path of
	// any length in range can satisfy this pattern (mirrors the Rust
	// source's test_no_valid_paths).
	schema := authoredCommentedSchema(t)
	ctx, plan := buildPlan(t, schema, 3, "MATCH (u:User)-[:HAS_COMMENT*1..2]->(x) RETURN x")

	out, err := Expand(ctx, plan)
	require.NoError(t, err)

	hp := findHeterogeneous(t, out)
	assert.Empty(t, hp.Branches)
}

func TestExpandHeterogeneousRejectsUnboundedMax(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 3, "MATCH (u:User)-[:FOLLOWS*2..]->(f) RETURN f")

	_, err := Expand(ctx, plan)
	require.Error(t, err)
	var compileErr *compileerr.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, compileerr.KindUnsupportedFeature, compileErr.Kind)
}

func TestExpandHeterogeneousRejectsOverCapLength(t *testing.T) {
	schema := followsSchema(t)
	ctx, plan := buildPlan(t, schema, 1, "MATCH (u:User)-[:FOLLOWS*1..2]->(f) RETURN f")

	_, err := Expand(ctx, plan)
	require.Error(t, err)
	var compileErr *compileerr.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, compileerr.KindUnsupportedFeature, compileErr.Kind)
}

func TestExpandRejectsPolymorphicWithCompositeID(t *testing.T) {
	schema := catalog.NewGraphSchema(1, "graph")

	userID, err := catalog.NewIdentifier([]string{"user_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertNode(&catalog.NodeSchema{Label: "User", Database: "db", Table: "users", ID: userID}))

	compositeTo, err := catalog.NewIdentifier([]string{"target_type", "target_id"})
	require.NoError(t, err)
	require.NoError(t, schema.InsertRelationship(&catalog.RelationshipSchema{
		Type: "LINKS", Database: "db", Table: "links",
		FromLabel: "User", ToLabel: catalog.AnyLabel, FromID: userID, ToID: compositeTo,
		TypeColumn: "target_type",
	}))

	ctx, plan := buildPlan(t, schema, 3, "MATCH (u:User)-[:LINKS*1..2]->(x) RETURN x")

	_, err = Expand(ctx, plan)
	require.Error(t, err)
	var compileErr *compileerr.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, compileerr.KindUnsupportedFeature, compileErr.Kind)
}
