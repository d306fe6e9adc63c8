package cypher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleMatchReturn(t *testing.T) {
	q, err := Parse(`MATCH (u:User)-[:AUTHORED]->(p:Post) WHERE u.user_id = 7 RETURN p.post_id, p.post_title LIMIT 10`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 2)

	match, ok := q.Clauses[0].(*MatchClause)
	require.True(t, ok)
	require.False(t, match.Optional)
	require.Len(t, match.Patterns, 1)

	pattern := match.Patterns[0]
	require.Len(t, pattern.Nodes, 2)
	require.Len(t, pattern.Edges, 1)
	require.Equal(t, []string{"User"}, pattern.Nodes[0].Labels)
	require.Equal(t, "u", pattern.Nodes[0].Variable)
	require.Equal(t, []string{"AUTHORED"}, pattern.Edges[0].Types)
	require.Equal(t, DirectionOutgoing, pattern.Edges[0].Direction)

	require.NotNil(t, match.Where)
	cmp, ok := match.Where.Expr.(*BinaryOp)
	require.True(t, ok)
	require.Equal(t, "=", cmp.Op)

	ret, ok := q.Clauses[1].(*ReturnClause)
	require.True(t, ok)
	require.Len(t, ret.Items, 2)
	require.NotNil(t, ret.Limit)
}

func TestParseOptionalMatch(t *testing.T) {
	q, err := Parse(`OPTIONAL MATCH (a)-[r:KNOWS]-(b) RETURN a, r, b`)
	require.NoError(t, err)
	match := q.Clauses[0].(*MatchClause)
	require.True(t, match.Optional)
	require.Equal(t, DirectionEither, match.Patterns[0].Edges[0].Direction)
}

func TestParseVariableLengthPath(t *testing.T) {
	q, err := Parse(`MATCH (u:User)-[:FOLLOWS|AUTHORED*1..2]->(x) RETURN x`)
	require.NoError(t, err)
	match := q.Clauses[0].(*MatchClause)
	edge := match.Patterns[0].Edges[0]
	require.Equal(t, []string{"FOLLOWS", "AUTHORED"}, edge.Types)
	require.NotNil(t, edge.VarLength)
	require.Equal(t, 1, edge.VarLength.Min)
	require.Equal(t, 2, edge.VarLength.Max)
}

func TestParseShortestPath(t *testing.T) {
	q, err := Parse(`MATCH p = shortestPath((a:User)-[:FOLLOWS*]->(b:User)) RETURN p`)
	require.NoError(t, err)
	match := q.Clauses[0].(*MatchClause)
	require.Equal(t, "p", match.Patterns[0].Variable)
	require.Equal(t, ShortestPathSingle, match.Patterns[0].ShortestPath)
}

func TestParseWithAndUnion(t *testing.T) {
	q, err := Parse(`MATCH (n:User) WITH n, count(*) AS c WHERE c > 1 RETURN n
UNION ALL
MATCH (n:Post) RETURN n`)
	require.NoError(t, err)
	var sawUnion bool
	for _, c := range q.Clauses {
		if u, ok := c.(*UnionClause); ok {
			sawUnion = true
			require.True(t, u.All)
		}
	}
	require.True(t, sawUnion)
}

func TestParseStandaloneCall(t *testing.T) {
	q, err := Parse(`CALL db.labels() YIELD label`)
	require.NoError(t, err)
	call, ok := q.Clauses[0].(*CallClause)
	require.True(t, ok)
	require.Equal(t, []string{"db"}, call.Namespace)
	require.Equal(t, "labels", call.Name)
	require.Equal(t, []string{"label"}, call.Yield)
}

func TestParseCompositeIdFilter(t *testing.T) {
	q, err := Parse(`MATCH (a:Account)-[:TRANSFERRED]->(b:Account) WHERE a.bank_id = 'X' AND a.account_number = '1' RETURN b`)
	require.NoError(t, err)
	match := q.Clauses[0].(*MatchClause)
	require.NotNil(t, match.Where)
	and, ok := match.Where.Expr.(*BinaryOp)
	require.True(t, ok)
	require.Equal(t, "AND", and.Op)
}

func TestParsePropertyPatternAndParameterRejectionIsAnalyzerConcern(t *testing.T) {
	// The parser accepts a parameter as an inline-property value; rejecting
	// it is the analyzer's job (FoundParamInProperties, SPEC_FULL.md §6).
	q, err := Parse(`MATCH (n:User {id: $id}) RETURN n`)
	require.NoError(t, err)
	match := q.Clauses[0].(*MatchClause)
	require.IsType(t, &Parameter{}, match.Patterns[0].Nodes[0].Properties["id"])
}

func TestParseListComprehension(t *testing.T) {
	q, err := Parse(`RETURN [x IN [1,2,3] WHERE x > 1 | x * 2] AS doubled`)
	require.NoError(t, err)
	ret := q.Clauses[0].(*ReturnClause)
	lc, ok := ret.Items[0].Expr.(*ListComprehension)
	require.True(t, ok)
	require.Equal(t, "x", lc.Variable)
	require.NotNil(t, lc.Where)
	require.NotNil(t, lc.Project)
}

func TestParseApocMetaSchemaCall(t *testing.T) {
	q, err := Parse(`CALL apoc.meta.schema() YIELD value RETURN value`)
	require.NoError(t, err)
	call := q.Clauses[0].(*CallClause)
	require.Equal(t, []string{"apoc", "meta"}, call.Namespace)
	require.Equal(t, "schema", call.Name)
}
