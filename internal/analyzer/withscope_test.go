package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

func runThroughFilterTagging(t *testing.T, ctx *planner.PlanCtx, query string) planner.LogicalPlan {
	t.Helper()
	q := mustParse(t, query)
	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)
	plan, err = RunSchemaFiltering(ctx, plan)
	require.NoError(t, err)
	plan, err = RunFilterTagging(ctx, plan)
	require.NoError(t, err)
	return plan
}

func TestWithScopeAllowsProjectedAlias(t *testing.T) {
	schema := userPostSchema(t)
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)
	plan := runThroughFilterTagging(t, ctx, "MATCH (u:User) WITH u AS u WHERE u.name = 'Ada' RETURN u.name")

	_, err := RunWithScope(ctx, plan)
	require.NoError(t, err)
}

func TestWithScopeRejectsUnprojectedAlias(t *testing.T) {
	schema := userPostSchema(t)
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)
	plan := runThroughFilterTagging(t, ctx,
		"MATCH (u:User)-[:AUTHORED]->(p:Post) WITH u AS u RETURN p.title")

	_, err := RunWithScope(ctx, plan)
	require.Error(t, err)
	var analysisErr *compileerr.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, compileerr.AnalysisWithScopeViolation, analysisErr.SubKind)
}

func TestWithScopeUnrestrictedWithoutEnclosingWith(t *testing.T) {
	schema := userPostSchema(t)
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)
	plan := runThroughFilterTagging(t, ctx, "MATCH (u:User) RETURN u.name")

	_, err := RunWithScope(ctx, plan)
	require.NoError(t, err)
}
