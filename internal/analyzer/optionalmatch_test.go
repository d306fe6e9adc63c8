package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

func TestOptionalMatchAcceptsAnchoredPattern(t *testing.T) {
	schema := userPostSchema(t)
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)
	q := mustParse(t, "MATCH (u:User) OPTIONAL MATCH (u)-[:AUTHORED]->(p:Post) RETURN u, p")

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)

	_, err = RunOptionalMatch(ctx, plan)
	require.NoError(t, err)
}

func TestOptionalMatchRejectsFloatingPattern(t *testing.T) {
	schema := userPostSchema(t)
	ctx := planner.NewPlanCtx(schema, 8, 100, 3)
	q := mustParse(t, "MATCH (u:User) OPTIONAL MATCH (x:User)-[:AUTHORED]->(y:Post) RETURN u")

	plan, err := planner.Build(ctx, q)
	require.NoError(t, err)

	_, err = RunOptionalMatch(ctx, plan)
	require.Error(t, err)
	var analysisErr *compileerr.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, compileerr.AnalysisOptionalMatchViolation, analysisErr.SubKind)
}
