package analyzer

import (
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// RunFilterTagging resolves every Filter node's predicate (and, for
// consistency, every Projection/With/OrderBy expression) from a raw parsed
// cypher.Expression into a resolved planner.Expr: PropertyAccess becomes a
// ColumnRef bound to the owning alias's catalog property mapping, whole-entity
// equality over a composite identifier becomes a TupleEq, and
// AND/OR/NOT/comparison operators
// become their typed Expr counterparts (spec.md §4.3 "filter tagging").
func RunFilterTagging(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	return rewrite(plan, func(p planner.LogicalPlan) (planner.LogicalPlan, error) {
		switch n := p.(type) {
		case *planner.Filter:
			resolved, err := resolveExpr(ctx, n.Pred)
			if err != nil {
				return nil, err
			}
			return &planner.Filter{Input: n.Input, Pred: resolved}, nil
		case *planner.Projection:
			items, err := resolveItems(ctx, n.Items)
			if err != nil {
				return nil, err
			}
			return &planner.Projection{Input: n.Input, Items: items, Distinct: n.Distinct}, nil
		case *planner.With:
			items, err := resolveItems(ctx, n.Items)
			if err != nil {
				return nil, err
			}
			where := n.Where
			if where != nil {
				resolved, err := resolveExpr(ctx, where)
				if err != nil {
					return nil, err
				}
				where = resolved
			}
			return &planner.With{Input: n.Input, Items: items, Distinct: n.Distinct, Where: where}, nil
		case *planner.OrderBy:
			items := make([]planner.OrderItem, len(n.Items))
			for i, it := range n.Items {
				resolved, err := resolveExpr(ctx, it.Expr)
				if err != nil {
					return nil, err
				}
				items[i] = planner.OrderItem{Expr: resolved, Descending: it.Descending}
			}
			return &planner.OrderBy{Input: n.Input, Items: items}, nil
		default:
			return p, nil
		}
	})
}

func resolveItems(ctx *planner.PlanCtx, items []planner.ProjectionItem) ([]planner.ProjectionItem, error) {
	out := make([]planner.ProjectionItem, len(items))
	for i, it := range items {
		resolved, err := resolveExpr(ctx, it.Expr)
		if err != nil {
			return nil, err
		}
		out[i] = planner.ProjectionItem{Expr: resolved, Alias: it.Alias}
	}
	return out, nil
}

// resolveExpr translates a planner.Expr carrying a raw cypher.Expression
// into its resolved form; an already-resolved Expr (ColumnRef, Eq, ...
// produced by inline-property desugaring or a polymorphic schema filter)
// passes through unchanged.
func resolveExpr(ctx *planner.PlanCtx, e planner.Expr) (planner.Expr, error) {
	raw, ok := e.(planner.RawExpr)
	if !ok {
		return e, nil
	}
	return resolveCypherExpr(ctx, raw.Expr)
}

func resolveCypherExpr(ctx *planner.PlanCtx, expr cypher.Expression) (planner.Expr, error) {
	switch n := expr.(type) {
	case *cypher.PropertyAccess:
		return resolvePropertyAccess(ctx, n)

	case *cypher.UnaryOp:
		if n.Op == "NOT" {
			inner, err := resolveCypherExpr(ctx, n.Expr)
			if err != nil {
				return nil, err
			}
			return planner.Not{Operand: inner}, nil
		}
		return planner.RawExpr{Expr: expr}, nil

	case *cypher.BinaryOp:
		return resolveBinaryOp(ctx, n)

	default:
		// Literals, parameters, variables, function calls, list
		// comprehensions, and path-pattern expressions are left for the SQL
		// emitter to translate directly against the cypher AST.
		return planner.RawExpr{Expr: expr}, nil
	}
}

func resolveBinaryOp(ctx *planner.PlanCtx, n *cypher.BinaryOp) (planner.Expr, error) {
	switch n.Op {
	case "AND":
		left, err := resolveCypherExpr(ctx, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := resolveCypherExpr(ctx, n.Right)
		if err != nil {
			return nil, err
		}
		return planner.And{Operands: flattenAnd(left, right)}, nil
	case "OR":
		left, err := resolveCypherExpr(ctx, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := resolveCypherExpr(ctx, n.Right)
		if err != nil {
			return nil, err
		}
		return planner.Or{Operands: []planner.Expr{left, right}}, nil
	case "=":
		left, leftIsVar := n.Left.(*cypher.Variable)
		right, rightIsVar := n.Right.(*cypher.Variable)
		if leftIsVar && rightIsVar {
			// Whole-entity equality (`WHERE a = b`) compares identifiers,
			// not properties; a composite identifier renders as a tuple
			// comparison (spec.md testable property 3).
			if lref, ok := resolveVariableIdentity(ctx, left); ok {
				if rref, ok := resolveVariableIdentity(ctx, right); ok {
					if lt, ok := lref.(planner.TupleRef); ok {
						if rt, ok := rref.(planner.TupleRef); ok {
							return planner.TupleEq{Left: lt, Right: rt}, nil
						}
					}
					return planner.Eq{Left: lref, Right: rref}, nil
				}
			}
		}

		leftExpr, err := resolveCypherExpr(ctx, n.Left)
		if err != nil {
			return nil, err
		}
		rightExpr, err := resolveCypherExpr(ctx, n.Right)
		if err != nil {
			return nil, err
		}
		if lt, ok := leftExpr.(planner.TupleRef); ok {
			if rt, ok := rightExpr.(planner.TupleRef); ok {
				return planner.TupleEq{Left: lt, Right: rt}, nil
			}
		}
		return planner.Eq{Left: leftExpr, Right: rightExpr}, nil
	case "<", "<=", ">", ">=", "<>":
		left, err := resolveCypherExpr(ctx, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := resolveCypherExpr(ctx, n.Right)
		if err != nil {
			return nil, err
		}
		return planner.Cmp{Op: n.Op, Left: left, Right: right}, nil
	default:
		return planner.RawExpr{Expr: n}, nil
	}
}

func flattenAnd(operands ...planner.Expr) []planner.Expr {
	var out []planner.Expr
	for _, op := range operands {
		if and, ok := op.(planner.And); ok {
			out = append(out, and.Operands...)
			continue
		}
		out = append(out, op)
	}
	return out
}

// resolvePropertyAccess resolves `alias.property` against the owning
// alias's resolved catalog schema: a property mapping first, then a
// single-column identifier named by the property. It always yields a
// ColumnRef; no property name resolves to a composite identifier's TupleRef
// (tuple comparison is reached only through whole-entity equality).
func resolvePropertyAccess(ctx *planner.PlanCtx, pa *cypher.PropertyAccess) (planner.Expr, error) {
	v, ok := pa.Base.(*cypher.Variable)
	if !ok {
		return planner.RawExpr{Expr: pa}, nil
	}
	table, ok := ctx.Tables[v.Name]
	if !ok {
		return nil, compileerr.NewAnalysisError(compileerr.AnalysisUnknownVariable,
			"variable "+v.Name+" is not defined", compileerr.Location{})
	}

	switch {
	case table.ResolvedNode != nil:
		if mapping, ok := table.ResolvedNode.PropertyMappings[pa.Property]; ok {
			return planner.ColumnRef{Alias: v.Name, Column: mapping.Column, Expression: mapping.Expression}, nil
		}
		if idRef, ok := identifierPropertyRef(v.Name, pa.Property, table.ResolvedNode.ID); ok {
			return idRef, nil
		}
	case table.ResolvedRel != nil:
		if mapping, ok := table.ResolvedRel.PropertyMappings[pa.Property]; ok {
			return planner.ColumnRef{Alias: v.Name, Column: mapping.Column, Expression: mapping.Expression}, nil
		}
	}

	return nil, compileerr.NewAnalysisError(compileerr.AnalysisUnboundProperty,
		"unbound property "+pa.Property+" on "+v.Name, compileerr.Location{})
}

// resolveVariableIdentity resolves a bare variable to its identifier
// columns, used only for whole-entity equality comparisons. ok is false when
// the alias is not yet bound to a resolved schema (e.g. a forward reference
// the planner never resolves), leaving the caller to fall back to the
// generic expression path.
func resolveVariableIdentity(ctx *planner.PlanCtx, v *cypher.Variable) (planner.Expr, bool) {
	table, ok := ctx.Tables[v.Name]
	if !ok {
		return nil, false
	}

	var id interface {
		Columns() []string
		IsComposite() bool
	}
	switch {
	case table.ResolvedNode != nil:
		id = table.ResolvedNode.ID
	case table.ResolvedRel != nil:
		id = table.ResolvedRel.EdgeID
		if id == nil {
			return nil, false
		}
	default:
		return nil, false
	}
	if id == nil {
		return nil, false
	}

	cols := id.Columns()
	if id.IsComposite() {
		return planner.TupleRef{Alias: v.Name, Columns: cols}, true
	}
	if len(cols) != 1 {
		return nil, false
	}
	return planner.ColumnRef{Alias: v.Name, Column: cols[0]}, true
}

func identifierPropertyRef(alias, property string, id interface {
	Columns() []string
	IsComposite() bool
}) (planner.Expr, bool) {
	if id == nil {
		return nil, false
	}
	cols := id.Columns()
	if len(cols) == 1 && cols[0] == property {
		return planner.ColumnRef{Alias: alias, Column: cols[0]}, true
	}
	return nil, false
}
