package cypher

// Query is the top-level parsed result: a sequence of clauses (optionally
// joined by UNION) or a single standalone procedure CALL.
type Query struct {
	Clauses []Clause
}

// Clause is any top-level statement clause.
type Clause interface {
	clauseMarker()
}

// Direction records the arrow written on an edge pattern.
type Direction int

const (
	DirectionEither Direction = iota
	DirectionOutgoing
	DirectionIncoming
)

// MatchClause represents MATCH / OPTIONAL MATCH.
type MatchClause struct {
	Patterns []PathPattern
	Optional bool
	Where    *WhereClause
}

func (c *MatchClause) clauseMarker() {}

// WhereClause represents a WHERE predicate.
type WhereClause struct {
	Expr Expression
}

func (c *WhereClause) clauseMarker() {}

// ProjectionItem is a single RETURN/WITH projection: an expression with an
// optional alias (`AS name`).
type ProjectionItem struct {
	Expr  Expression
	Alias string // empty if no AS clause
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr       Expression
	Descending bool
}

// ReturnClause represents RETURN.
type ReturnClause struct {
	Distinct bool
	Star     bool // RETURN *
	Items    []ProjectionItem
	OrderBy  []OrderItem
	Skip     Expression
	Limit    Expression
}

func (c *ReturnClause) clauseMarker() {}

// WithClause represents WITH: a projection that also introduces a new scope
// boundary (see SPEC_FULL.md §7 withscope pass).
type WithClause struct {
	Distinct bool
	Star     bool
	Items    []ProjectionItem
	Where    *WhereClause
	OrderBy  []OrderItem
	Skip     Expression
	Limit    Expression
}

func (c *WithClause) clauseMarker() {}

// UnionClause separates two query blocks; All distinguishes UNION ALL from
// UNION DISTINCT-by-default.
type UnionClause struct {
	All bool
}

func (c *UnionClause) clauseMarker() {}

// CallClause is a standalone procedure invocation (spec.md §4.6), e.g.
// `CALL db.labels() YIELD label`.
type CallClause struct {
	Namespace []string // e.g. ["db"], ["apoc", "meta"]
	Name      string   // e.g. "labels", "schema"
	Args      []Expression
	Yield     []string
}

func (c *CallClause) clauseMarker() {}

// PathPattern is one comma-separated pattern within a MATCH clause,
// optionally bound to a path variable (`p = (a)-[r]->(b)`), optionally
// wrapped in shortestPath()/allShortestPaths().
type PathPattern struct {
	Variable     string // path variable, empty if unbound
	Nodes        []*NodePattern
	Edges        []*EdgePattern // len(Edges) == len(Nodes)-1
	ShortestPath ShortestPathMode
}

// ShortestPathMode tags a pattern as wrapped in shortestPath()/allShortestPaths().
type ShortestPathMode int

const (
	ShortestPathNone ShortestPathMode = iota
	ShortestPathSingle
	ShortestPathAll
)

// NodePattern is `(var:Label1:Label2 {prop: val, ...})`.
type NodePattern struct {
	Variable   string
	Labels     []string
	Properties map[string]Expression
}

// VarLengthSpec is the `*min..max` quantifier on an edge pattern.
type VarLengthSpec struct {
	Min int  // 1 if unspecified ("*" alone means 1..unbounded)
	Max int  // -1 if unbounded
	Set bool // true when a `*` was present at all
}

// EdgePattern is `-[var:TYPE1|TYPE2*min..max]->` (or `<-...-`, or `-...-`).
// Direction always records the arrow independent of which node appears on
// the left/right in source order (SPEC_FULL.md §5 direction-normalization
// rule); ConnectedPattern-equivalent ordering is captured by the containing
// PathPattern's Nodes/Edges interleaving, where Edges[i] connects
// Nodes[i] (as written on the left) to Nodes[i+1] (as written on the right).
type EdgePattern struct {
	Variable   string
	Types      []string // multiple types joined by '|'
	Direction  Direction
	Properties map[string]Expression
	VarLength  *VarLengthSpec
}

// --- Expressions ---

// Expression is any value-producing AST node.
type Expression interface {
	exprMarker()
}

// Literal wraps a parsed scalar literal value.
type Literal struct {
	Value any // int64, float64, string, bool, nil
}

func (Literal) exprMarker() {}

// ListLiteral is `[e1, e2, ...]`.
type ListLiteral struct {
	Items []Expression
}

func (ListLiteral) exprMarker() {}

// MapLiteral is `{k1: v1, k2: v2}`.
type MapLiteral struct {
	Entries map[string]Expression
	// Order preserves source order for deterministic re-emission.
	Order []string
}

func (MapLiteral) exprMarker() {}

// Parameter is `$name`.
type Parameter struct {
	Name string
}

func (Parameter) exprMarker() {}

// Variable references a bound alias.
type Variable struct {
	Name string
}

func (Variable) exprMarker() {}

// PropertyAccess is `base.property`.
type PropertyAccess struct {
	Base     Expression
	Property string
}

func (PropertyAccess) exprMarker() {}

// FunctionCall is `name(args...)`, possibly namespaced (`apoc.meta.schema()`).
type FunctionCall struct {
	Namespace []string
	Name      string
	Args      []Expression
	Distinct  bool
}

func (FunctionCall) exprMarker() {}

// UnaryOp is a prefix operator application (NOT, unary -).
type UnaryOp struct {
	Op   string
	Expr Expression
}

func (UnaryOp) exprMarker() {}

// BinaryOp is an infix operator application.
type BinaryOp struct {
	Op    string
	Left  Expression
	Right Expression
}

func (BinaryOp) exprMarker() {}

// ListComprehension is `[x IN list WHERE pred | expr]`.
type ListComprehension struct {
	Variable string
	List     Expression
	Where    Expression // nil if absent
	Project  Expression // nil if absent ("x IN list" alone filters/copies)
}

func (ListComprehension) exprMarker() {}

// PathPatternExpression is a pattern used in expression position, e.g. the
// argument to shortestPath(...).
type PathPatternExpression struct {
	Pattern PathPattern
}

func (PathPatternExpression) exprMarker() {}

// IsNullTest is `expr IS NULL` / `expr IS NOT NULL`.
type IsNullTest struct {
	Expr    Expression
	Negated bool
}

func (IsNullTest) exprMarker() {}

// InExpr is `expr IN list`.
type InExpr struct {
	Expr Expression
	List Expression
}

func (InExpr) exprMarker() {}

// CaseExpression is `CASE [test] WHEN cond THEN val ... [ELSE val] END`.
type CaseExpression struct {
	Test       Expression // nil for generic CASE WHEN cond THEN
	Whens      []CaseWhen
	Else       Expression
}

// CaseWhen is one WHEN/THEN arm.
type CaseWhen struct {
	Condition Expression
	Result    Expression
}

func (CaseExpression) exprMarker() {}
