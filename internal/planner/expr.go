package planner

import "github.com/cyphergraph/cyphergraph/internal/cypher"

// Expr is a plan-level expression. Most plans carry the original parsed
// cypher.Expression (RawExpr); analyzer passes that resolve a property
// access to a concrete column replace it with a ColumnRef so the emitter
// never has to re-derive the mapping.
type Expr interface {
	exprPlanMarker()
}

// RawExpr wraps an unresolved cypher.Expression, carried through until an
// analyzer pass resolves it (or the emitter handles it directly, e.g.
// literals and parameters).
type RawExpr struct {
	Expr cypher.Expression
}

func (RawExpr) exprPlanMarker() {}

// ColumnRef is a resolved `alias.column` reference, the result of
// desugaring a PropertyAccess against a catalog property mapping.
type ColumnRef struct {
	Alias  string
	Column string
	// Expression is set instead of Column when the catalog mapping is a
	// scalar SQL expression rather than a plain column (spec.md invariant 6).
	Expression string
}

func (ColumnRef) exprPlanMarker() {}

// TupleRef is a resolved composite-identifier reference, rendered as a SQL
// tuple at emission (spec.md invariant 5, testable property 3).
type TupleRef struct {
	Alias   string
	Columns []string
}

func (TupleRef) exprPlanMarker() {}

// And combines predicates with AND, used to accumulate inline-property
// filters and WHERE clauses (spec.md §9 inline-property desugaring).
type And struct {
	Operands []Expr
}

func (And) exprPlanMarker() {}

// Eq is a resolved equality predicate, the common shape produced by
// inline-property desugaring and join-predicate construction.
type Eq struct {
	Left  Expr
	Right Expr
}

func (Eq) exprPlanMarker() {}

// TupleEq is a composite-identifier equality predicate (spec.md testable
// property 3): `(a.c1,...) = (b.c1,...)`.
type TupleEq struct {
	Left  TupleRef
	Right TupleRef
}

func (TupleEq) exprPlanMarker() {}

// Or combines predicates with OR.
type Or struct {
	Operands []Expr
}

func (Or) exprPlanMarker() {}

// Not negates a predicate.
type Not struct {
	Operand Expr
}

func (Not) exprPlanMarker() {}

// Cmp is a resolved non-equality comparison (<, <=, >, >=, <>).
type Cmp struct {
	Op    string
	Left  Expr
	Right Expr
}

func (Cmp) exprPlanMarker() {}

// Raw wraps a finished SQL text fragment, used for engine-supplied
// constraint expressions (catalog `constraints` strings) that are already
// valid SQL referencing `from.`/`to.` placeholders rewritten to alias.column.
type Raw struct {
	SQL string
}

func (Raw) exprPlanMarker() {}
