package analyzer

import (
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// RunWithScope validates spec.md §9's WITH scope rule: downstream of a WITH,
// only its projected items' aliases are visible; a reference to anything
// else (an alias bound before WITH but not re-projected) is rejected with
// AnalysisWithScopeViolation. WHERE after WITH may reference the WITH's own
// aliases, including aggregate results, since those are first-class names
// by the time WHERE is attached to the clause.
func RunWithScope(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	newPlan, _, err := validateScope(plan, nil)
	return newPlan, err
}

// validateScope recurses toward the earliest clause first so that the
// visibility set introduced by a WITH (computed on the way back out) is
// available to every later clause that wraps it. A nil visible set means
// "unrestricted": no WITH has been seen yet on the path from the root of
// the query down to this point.
func validateScope(plan planner.LogicalPlan, visible map[string]bool) (planner.LogicalPlan, map[string]bool, error) {
	switch p := plan.(type) {
	case *planner.With:
		input, inner, err := validateScope(p.Input, visible)
		if err != nil {
			return nil, nil, err
		}
		for _, item := range p.Items {
			if err := checkVisible(item.Expr, inner); err != nil {
				return nil, nil, err
			}
		}
		next := make(map[string]bool, len(p.Items))
		for _, item := range p.Items {
			if item.Alias != "" {
				next[item.Alias] = true
			} else if v, ok := bareVariable(item.Expr); ok {
				next[v] = true
			}
		}
		if err := checkVisible(p.Where, next); err != nil {
			return nil, nil, err
		}
		return &planner.With{Input: input, Items: p.Items, Distinct: p.Distinct, Where: p.Where}, next, nil

	case *planner.Projection:
		input, inner, err := validateScope(p.Input, visible)
		if err != nil {
			return nil, nil, err
		}
		for _, item := range p.Items {
			if err := checkVisible(item.Expr, inner); err != nil {
				return nil, nil, err
			}
		}
		return &planner.Projection{Input: input, Items: p.Items, Distinct: p.Distinct}, inner, nil

	case *planner.Filter:
		input, inner, err := validateScope(p.Input, visible)
		if err != nil {
			return nil, nil, err
		}
		if err := checkVisible(p.Pred, inner); err != nil {
			return nil, nil, err
		}
		return &planner.Filter{Input: input, Pred: p.Pred}, inner, nil

	case *planner.OrderBy:
		input, inner, err := validateScope(p.Input, visible)
		if err != nil {
			return nil, nil, err
		}
		for _, item := range p.Items {
			if err := checkVisible(item.Expr, inner); err != nil {
				return nil, nil, err
			}
		}
		return &planner.OrderBy{Input: input, Items: p.Items}, inner, nil

	case *planner.Skip:
		input, inner, err := validateScope(p.Input, visible)
		if err != nil {
			return nil, nil, err
		}
		return &planner.Skip{Input: input, Count: p.Count}, inner, nil

	case *planner.Limit:
		input, inner, err := validateScope(p.Input, visible)
		if err != nil {
			return nil, nil, err
		}
		return &planner.Limit{Input: input, Count: p.Count}, inner, nil

	default:
		// Leaves (and multi-branch nodes: CrossJoin, Union, GraphRel,
		// GraphJoins) carry the pattern-matching tree, not a projection;
		// nothing here is scope-restricted by a WITH.
		return plan, visible, nil
	}
}

func checkVisible(e planner.Expr, visible map[string]bool) error {
	if visible == nil || e == nil {
		return nil
	}
	raw, ok := e.(planner.RawExpr)
	if !ok {
		return checkResolvedVisible(e, visible)
	}
	return checkCypherVisible(raw.Expr, visible)
}

func checkResolvedVisible(e planner.Expr, visible map[string]bool) error {
	switch n := e.(type) {
	case planner.ColumnRef:
		return requireVisible(n.Alias, visible)
	case planner.TupleRef:
		return requireVisible(n.Alias, visible)
	case planner.And:
		return checkAllVisible(n.Operands, visible)
	case planner.Or:
		return checkAllVisible(n.Operands, visible)
	case planner.Not:
		return checkVisible(n.Operand, visible)
	case planner.Eq:
		if err := checkVisible(n.Left, visible); err != nil {
			return err
		}
		return checkVisible(n.Right, visible)
	case planner.Cmp:
		if err := checkVisible(n.Left, visible); err != nil {
			return err
		}
		return checkVisible(n.Right, visible)
	default:
		return nil
	}
}

func checkAllVisible(operands []planner.Expr, visible map[string]bool) error {
	for _, op := range operands {
		if err := checkVisible(op, visible); err != nil {
			return err
		}
	}
	return nil
}

func checkCypherVisible(expr cypher.Expression, visible map[string]bool) error {
	switch n := expr.(type) {
	case *cypher.Variable:
		return requireVisible(n.Name, visible)
	case *cypher.PropertyAccess:
		return checkCypherVisible(n.Base, visible)
	case *cypher.BinaryOp:
		if err := checkCypherVisible(n.Left, visible); err != nil {
			return err
		}
		return checkCypherVisible(n.Right, visible)
	case *cypher.UnaryOp:
		return checkCypherVisible(n.Expr, visible)
	case *cypher.FunctionCall:
		for _, arg := range n.Args {
			if err := checkCypherVisible(arg, visible); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func requireVisible(alias string, visible map[string]bool) error {
	if visible[alias] {
		return nil
	}
	return compileerr.NewAnalysisError(compileerr.AnalysisWithScopeViolation,
		"variable "+alias+" is not visible in this scope; it was not projected by an enclosing WITH",
		compileerr.Location{})
}

func bareVariable(e planner.Expr) (string, bool) {
	raw, ok := e.(planner.RawExpr)
	if !ok {
		return "", false
	}
	v, ok := raw.Expr.(*cypher.Variable)
	if !ok {
		return "", false
	}
	return v.Name, true
}
