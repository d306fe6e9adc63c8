// Package planner builds a logical query plan from a parsed Cypher AST,
// grounded on the catalog (SPEC_FULL.md §6). The plan is a closed sum type
// over the operator set below; analyzer passes pattern-match on the variant
// and return either the plan they were given or a new one.
package planner

import (
	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
)

// LogicalPlan is the closed operator sum type of spec.md §3.
type LogicalPlan interface {
	planMarker()
}

// Scan is a bare physical-table scan with no catalog binding. Used only as
// an intermediate before ViewScan construction; real plans carry ViewScan.
type Scan struct {
	Database string
	Table    string
	Alias    string
}

func (*Scan) planMarker() {}

// UnresolvedScan marks a node or relationship alias whose label/type could
// not be fixed during initial planning (absent or ambiguous in the
// pattern); the type-inference analyzer pass (spec.md §4.3) replaces it
// with a concrete ViewScan or Union of ViewScans.
type UnresolvedScan struct {
	Alias string
}

func (*UnresolvedScan) planMarker() {}

// CrossJoin composes disconnected comma-separated patterns (spec.md §9
// "Disconnected comma patterns are permitted and correlated only through
// WHERE predicates"). The analyzer never synthesizes a join predicate for
// it; any correlation must already live in an enclosing Filter.
type CrossJoin struct {
	Plans []LogicalPlan
}

func (*CrossJoin) planMarker() {}

// ViewScan is a catalog-bound scan carrying label/type metadata, the
// property map, denormalization hints, polymorphic discriminator columns,
// view-parameter bindings, and a schema-level filter (spec.md §3, §4.3).
type ViewScan struct {
	Alias    string
	Database string
	Table    string

	// Label is set for node scans, Type for relationship scans. Exactly one
	// is non-empty.
	Label string
	Type  string

	ID               catalog.Identifier
	PropertyMappings map[string]catalog.PropertyMapping

	ViewParameters      []string
	ViewParameterValues map[string]string

	UseFinal bool

	// Denormalized-endpoint support (spec.md §4.3 ViewScan construction
	// rules): at most one of these is non-empty per branch.
	FromNodeProperties map[string]catalog.PropertyMapping
	ToNodeProperties    map[string]catalog.PropertyMapping
	IsDenormalized      bool

	// Polymorphic discriminators (spec.md invariant 4), carried through
	// unchanged for the emitter's CASE/filter construction.
	TypeColumn      string
	FromLabelColumn string
	ToLabelColumn   string

	// SchemaFilter is an extra predicate the catalog attaches to every
	// reference to this table (e.g. a polymorphic equality filter); nil when
	// the schema imposes none.
	SchemaFilter Expr
}

func (*ViewScan) planMarker() {}

// GraphNode wraps a label binding and its underlying scan.
type GraphNode struct {
	Alias string
	Scan  LogicalPlan // *ViewScan, or *Union of ViewScans
}

func (*GraphNode) planMarker() {}

// GraphRel is a pattern edge: left/center/right subplans, direction,
// endpoint aliases, and the optional modifiers of spec.md §3.
type GraphRel struct {
	Left   LogicalPlan // left endpoint subplan (GraphNode or nested GraphRel)
	Center LogicalPlan // the edge's own scan (*ViewScan or *Union)
	Right  LogicalPlan // right endpoint subplan

	LeftAlias  string
	RightAlias string
	EdgeAlias  string

	Direction cypher.Direction

	VarLength    *cypher.VarLengthSpec
	ShortestPath cypher.ShortestPathMode
	PathVariable string

	// OptionalLabels is set when the relationship type was left unresolved
	// at plan-construction time and must be finalized by type inference
	// (spec.md §4.3 type-inference pass).
	OptionalLabels []string

	IsOptional bool
}

func (*GraphRel) planMarker() {}

// Filter applies a predicate over its input.
type Filter struct {
	Input LogicalPlan
	Pred  Expr
}

func (*Filter) planMarker() {}

// Projection selects and optionally renames/evaluates the projection list.
type Projection struct {
	Input    LogicalPlan
	Items    []ProjectionItem
	Distinct bool
}

// ProjectionItem pairs a compiled expression with an output name.
type ProjectionItem struct {
	Expr  Expr
	Alias string
}

func (*Projection) planMarker() {}

// UnionKind distinguishes UNION ALL from UNION DISTINCT.
type UnionKind int

const (
	UnionAll UnionKind = iota
	UnionDistinct
)

// Union combines branches; used both for Cypher UNION clauses and for
// ViewScan/path-expansion fan-out (spec.md §4.3, §4.4).
type Union struct {
	Branches []LogicalPlan
	Kind     UnionKind
}

func (*Union) planMarker() {}

// OrderBy sorts its input.
type OrderBy struct {
	Input LogicalPlan
	Items []OrderItem
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr       Expr
	Descending bool
}

func (*OrderBy) planMarker() {}

// Skip discards the first N rows.
type Skip struct {
	Input LogicalPlan
	Count Expr
}

func (*Skip) planMarker() {}

// Limit bounds the row count.
type Limit struct {
	Input LogicalPlan
	Count Expr
}

func (*Limit) planMarker() {}

// With is a projection that also introduces a new scope boundary
// (spec.md §9 "WITH clause").
type With struct {
	Input    LogicalPlan
	Items    []ProjectionItem
	Distinct bool
	Where    Expr // nil if absent
}

func (*With) planMarker() {}

// Empty is the plan for a query with no rows to scan (e.g. a standalone
// expression RETURN with no MATCH).
type Empty struct{}

func (*Empty) planMarker() {}

// JoinKind distinguishes INNER from LEFT joins.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
)

// JoinDescriptor is one ordered join in a GraphJoins operator (post-analyzer
// relational form, spec.md §4.3 graph-join inference).
type JoinDescriptor struct {
	Kind  JoinKind
	Scan  *ViewScan
	Alias string
	Pred  Expr
}

// GraphJoins is the post-analyzer relational form of a GraphRel chain: an
// anchor FROM table plus an ordered list of join descriptors.
type GraphJoins struct {
	AnchorAlias string
	Anchor      *ViewScan
	Joins       []JoinDescriptor
}

func (*GraphJoins) planMarker() {}

// Unchanged is the nil LogicalPlan value. No analyzer pass returns it: a
// pass that makes no modification returns the plan it was given.
var Unchanged LogicalPlan

// HomogeneousPath is the post-join-inference form of a variable-length or
// shortest-path edge whose two endpoints and single relationship type each
// resolved to exactly one concrete schema (spec.md §4.4, "Variable-length,
// homogeneous"): a recursive CTE over a fixed node/edge scan rather than a
// flat join list.
type HomogeneousPath struct {
	StartAlias string
	EndAlias   string
	PathVariable string

	StartScan *ViewScan
	EdgeScan  *ViewScan
	EndScan   *ViewScan

	// EdgeIdentity is the column (or tuple) that must differ across hops of
	// one path so the recursion cannot revisit an edge: the schema's own
	// edge_id when declared, otherwise the (from_id, to_id) tuple.
	EdgeIdentity catalog.Identifier

	MinHops int
	MaxHops int // -1 means unbounded

	Direction    cypher.Direction
	ShortestPath cypher.ShortestPathMode
}

func (*HomogeneousPath) planMarker() {}

// HeterogeneousPath is the post-join-inference form of a variable-length
// edge spanning more than one relationship type or node label (spec.md
// §4.4, "Variable-length, heterogeneous"): every concrete-type path the
// schema admits, enumerated ahead of time and combined with UNION ALL,
// rather than a recursive CTE (unsafe across mismatched id types).
type HeterogeneousPath struct {
	StartAlias   string
	EndAlias     string
	PathVariable string
	ShortestPath cypher.ShortestPathMode
	Branches     []PathBranch
}

func (*HeterogeneousPath) planMarker() {}

// PathBranch is one concrete-type hop chain realizing a HeterogeneousPath,
// anchored at StartScan and extended by Hops in pattern order.
type PathBranch struct {
	StartScan *ViewScan
	Hops      []PathHop
}

// PathHop is one traversed edge in an enumerated heterogeneous path. Schema
// is the resolved relationship backing the hop, carried through so the
// renderer can build its join predicate the same way GraphJoins does.
// EdgeScan is nil for an FK-edge hop: the relationship table equals the
// target node's table, so NodeScan alone carries the row and only one join
// follows, rather than a separate edge-table reference.
type PathHop struct {
	RelType   string
	Reversed  bool
	Schema    *catalog.RelationshipSchema
	EdgeScan  *ViewScan
	NodeScan  *ViewScan
	NodeLabel string
}
