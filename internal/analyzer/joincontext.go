package analyzer

import (
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// RunJoinContext tallies, per alias, how many times it is referenced outside
// the pattern tree that introduced it: WHERE predicates, RETURN/WITH/ORDER
// BY projections. Graph-join inference (internal/joininfer, spec.md §4.3)
// reads each endpoint's ExternalRefs for the SingleTableScan optimization:
// a standalone fixed-length edge whose two endpoints both have zero
// external references, and whose edge scans carry no schema filter, is
// read from the edge's own view scan with no endpoint joined in.
//
// This pass never rewrites the plan; it walks it purely for the counting
// side effect, so every rewrite() callback returns its argument unchanged.
func RunJoinContext(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	_, err := rewrite(plan, func(p planner.LogicalPlan) (planner.LogicalPlan, error) {
		switch n := p.(type) {
		case *planner.Filter:
			countExprRefs(ctx, n.Pred)
		case *planner.Projection:
			for _, it := range n.Items {
				countExprRefs(ctx, it.Expr)
			}
		case *planner.With:
			for _, it := range n.Items {
				countExprRefs(ctx, it.Expr)
			}
			countExprRefs(ctx, n.Where)
		case *planner.OrderBy:
			for _, it := range n.Items {
				countExprRefs(ctx, it.Expr)
			}
		}
		return p, nil
	})
	return plan, err
}

func countExprRefs(ctx *planner.PlanCtx, e planner.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case planner.RawExpr:
		countCypherRefs(ctx, n.Expr)
	case planner.ColumnRef:
		bumpRef(ctx, n.Alias)
	case planner.TupleRef:
		bumpRef(ctx, n.Alias)
	case planner.And:
		for _, op := range n.Operands {
			countExprRefs(ctx, op)
		}
	case planner.Or:
		for _, op := range n.Operands {
			countExprRefs(ctx, op)
		}
	case planner.Not:
		countExprRefs(ctx, n.Operand)
	case planner.Eq:
		countExprRefs(ctx, n.Left)
		countExprRefs(ctx, n.Right)
	case planner.TupleEq:
		countExprRefs(ctx, n.Left)
		countExprRefs(ctx, n.Right)
	case planner.Cmp:
		countExprRefs(ctx, n.Left)
		countExprRefs(ctx, n.Right)
	}
}

func countCypherRefs(ctx *planner.PlanCtx, expr cypher.Expression) {
	if expr == nil {
		return
	}
	switch n := expr.(type) {
	case *cypher.Variable:
		bumpRef(ctx, n.Name)
	case *cypher.PropertyAccess:
		countCypherRefs(ctx, n.Base)
	case *cypher.BinaryOp:
		countCypherRefs(ctx, n.Left)
		countCypherRefs(ctx, n.Right)
	case *cypher.UnaryOp:
		countCypherRefs(ctx, n.Expr)
	case *cypher.FunctionCall:
		for _, arg := range n.Args {
			countCypherRefs(ctx, arg)
		}
	case *cypher.ListLiteral:
		for _, item := range n.Items {
			countCypherRefs(ctx, item)
		}
	case *cypher.InExpr:
		countCypherRefs(ctx, n.Expr)
		countCypherRefs(ctx, n.List)
	case *cypher.IsNullTest:
		countCypherRefs(ctx, n.Expr)
	case *cypher.ListComprehension:
		countCypherRefs(ctx, n.List)
		countCypherRefs(ctx, n.Where)
		countCypherRefs(ctx, n.Project)
	case *cypher.CaseExpression:
		countCypherRefs(ctx, n.Test)
		for _, when := range n.Whens {
			countCypherRefs(ctx, when.Condition)
			countCypherRefs(ctx, when.Result)
		}
		countCypherRefs(ctx, n.Else)
	}
}

func bumpRef(ctx *planner.PlanCtx, alias string) {
	if alias == "" {
		return
	}
	ctx.TableFor(alias).ExternalRefs++
}
