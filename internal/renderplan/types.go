// Package renderplan lowers an analyzer- and join-inference-transformed
// logical plan into a DAG of named CTEs (spec.md §4.5 "Render plan"),
// topologically ordered so internal/sqlemit can walk it in declaration
// order. Every CTE body is one of the closed CTEBody variants below; a
// variable-length edge already expanded by internal/pathexpand contributes
// either a RecursiveBody (homogeneous) or an EnumeratedPathBody
// (heterogeneous), mirroring the split internal/pathexpand itself makes.
package renderplan

import "github.com/cyphergraph/cyphergraph/internal/planner"

// CTEBody is the closed body-shape sum type of one named CTE.
type CTEBody interface {
	cteBodyMarker()
}

// ScanBody selects a catalog ViewScan's id and property columns directly
// off its physical table.
type ScanBody struct {
	Scan *planner.ViewScan
}

func (ScanBody) cteBodyMarker() {}

// JoinBody inlines a GraphJoins anchor-plus-ordered-joins shape: one
// physical FROM table and a sequence of INNER/LEFT joins against further
// physical tables, never against a prior CTE.
type JoinBody struct {
	Joins *planner.GraphJoins
}

func (JoinBody) cteBodyMarker() {}

// FilterBody applies Pred over the rows of the named Source CTE. Pred
// references Source's flattened `<alias>__<column>` output columns, not
// the original physical table aliases.
type FilterBody struct {
	Source string
	Pred   planner.Expr
}

func (FilterBody) cteBodyMarker() {}

// ProjectBody selects Items from Source, again addressed in Source's
// flattened column namespace.
type ProjectBody struct {
	Source   string
	Items    []planner.ProjectionItem
	Distinct bool
}

func (ProjectBody) cteBodyMarker() {}

// OrderByBody orders Source by Items.
type OrderByBody struct {
	Source string
	Items  []planner.OrderItem
}

func (OrderByBody) cteBodyMarker() {}

// SliceBody applies SKIP and/or LIMIT to Source. A plan with both carries
// two chained SliceBody CTEs rather than one merged node; a nested subquery
// per clause is simpler to render correctly than threading Skip through
// Limit construction order.
type SliceBody struct {
	Source string
	Skip   planner.Expr // nil if absent
	Limit  planner.Expr // nil if absent
}

func (SliceBody) cteBodyMarker() {}

// UnionBody combines Members with Kind (UNION ALL or UNION DISTINCT).
type UnionBody struct {
	Members []string
	Kind    planner.UnionKind
}

func (UnionBody) cteBodyMarker() {}

// CrossJoinBody cross-joins Members with no ON predicate (spec.md §9
// "disconnected comma patterns"); any correlation already lives in a
// downstream FilterBody.
type CrossJoinBody struct {
	Members []string
}

func (CrossJoinBody) cteBodyMarker() {}

// RecursiveBody is the homogeneous variable-length regime (spec.md §4.4):
// one recursive CTE tracking start_id/end_id/path_edges/path_nodes.
type RecursiveBody struct {
	Path *planner.HomogeneousPath
}

func (RecursiveBody) cteBodyMarker() {}

// EnumeratedPathBody is the heterogeneous variable-length regime: every
// concrete-type branch internal/pathexpand enumerated, combined with
// UNION ALL.
type EnumeratedPathBody struct {
	Path *planner.HeterogeneousPath
}

func (EnumeratedPathBody) cteBodyMarker() {}

// EmptyBody selects zero rows.
type EmptyBody struct{}

func (EmptyBody) cteBodyMarker() {}

// OutputColumn names one column a CTE exposes. Informational only: unlike
// Body, it is not required to render correct SQL (internal/sqlemit derives
// the live column set itself while walking each body), but it gives a
// caller a cheap, sourceless way to inspect a render plan's shape.
type OutputColumn struct {
	Name string
}

// CTE is one named node of the render-plan DAG.
type CTE struct {
	Name      string
	Body      CTEBody
	Columns   []OutputColumn
	DependsOn []string
}

// RenderPlan is the full topologically-ordered CTE DAG plus the name of the
// CTE the final outer SELECT reads from (spec.md §3 "Render plan").
// FinalItems is the query's actual RETURN/WITH projection item list,
// carried separately from Root's CTE body so the emitter can tell which
// output columns are whole-graph-variable expansions (spec.md §4.5)
// without having to reverse-engineer it from Root's flattened column
// names.
type RenderPlan struct {
	CTEs       []CTE
	Root       string
	FinalItems []planner.ProjectionItem
}
