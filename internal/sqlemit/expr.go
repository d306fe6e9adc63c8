package sqlemit

import (
	"fmt"
	"strings"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// exprCtx carries everything the expression renderer needs beyond the
// expression tree itself: the PlanCtx for resolving a raw PropertyAccess
// internal/analyzer/filtertagging.go left untouched, the Binder for
// parameter placeholders, and whether we are rendering inside a base
// scan/join CTE (qualified `alias.column` references against a physical
// table) or a downstream CTE (bare `alias__column` references against a
// prior CTE's flattened output, spec.md §4.5).
type exprCtx struct {
	ctx       *planner.PlanCtx
	binder    *Binder
	qualified bool
}

func (e *exprCtx) columnRef(alias, column, expression string) string {
	if expression != "" {
		// A catalog-declared scalar expression is used verbatim regardless
		// of qualified/flattened mode, mirroring catalog.PropertyMapping's
		// own SQLRef behavior: the YAML author already wrote whatever
		// column references the expression needs.
		return expression
	}
	if e.qualified {
		return alias + "." + column
	}
	return alias + "__" + column
}

func (e *exprCtx) tupleRef(alias string, columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = e.columnRef(alias, c, "")
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// renderExpr renders a resolved planner.Expr (spec.md §4.3 filter tagging
// output) to SQL text.
func (e *exprCtx) renderExpr(expr planner.Expr) (string, error) {
	switch v := expr.(type) {
	case nil:
		return "", compileerr.NewRenderError("nil expression", nil)

	case planner.RawExpr:
		return e.renderCypher(v.Expr)

	case planner.ColumnRef:
		return e.columnRef(v.Alias, v.Column, v.Expression), nil

	case planner.TupleRef:
		return e.tupleRef(v.Alias, v.Columns), nil

	case planner.And:
		return e.joinOperands(v.Operands, "AND")

	case planner.Or:
		return e.joinOperands(v.Operands, "OR")

	case planner.Not:
		s, err := e.renderExpr(v.Operand)
		if err != nil {
			return "", err
		}
		return "NOT (" + s + ")", nil

	case planner.Eq:
		l, err := e.renderExpr(v.Left)
		if err != nil {
			return "", err
		}
		r, err := e.renderExpr(v.Right)
		if err != nil {
			return "", err
		}
		return l + " = " + r, nil

	case planner.TupleEq:
		return e.tupleRef(v.Left.Alias, v.Left.Columns) + " = " + e.tupleRef(v.Right.Alias, v.Right.Columns), nil

	case planner.Cmp:
		l, err := e.renderExpr(v.Left)
		if err != nil {
			return "", err
		}
		r, err := e.renderExpr(v.Right)
		if err != nil {
			return "", err
		}
		return l + " " + v.Op + " " + r, nil

	case planner.Raw:
		return v.SQL, nil

	default:
		return "", compileerr.NewRenderError(fmt.Sprintf("unsupported planner expression %T", expr), nil)
	}
}

func (e *exprCtx) joinOperands(operands []planner.Expr, op string) (string, error) {
	parts := make([]string, len(operands))
	for i, o := range operands {
		s, err := e.renderExpr(o)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + s + ")"
	}
	return strings.Join(parts, " "+op+" "), nil
}

// renderCypher renders a raw, unresolved cypher.Expression: everything
// internal/analyzer/filtertagging.go left wrapped whole in a planner.RawExpr
// (literals, parameters, variables, function calls, arithmetic/string
// operators, list/map literals, IN, IS NULL, CASE).
func (e *exprCtx) renderCypher(expr cypher.Expression) (string, error) {
	switch n := expr.(type) {
	case *cypher.Literal:
		return e.binder.BindLiteral(n.Value), nil

	case *cypher.Parameter:
		return e.binder.Bind(n.Name), nil

	case *cypher.Variable:
		return e.wholeVariableIdentity(n.Name)

	case *cypher.PropertyAccess:
		return e.propertyAccess(n)

	case *cypher.ListLiteral:
		parts := make([]string, len(n.Items))
		for i, it := range n.Items {
			s, err := e.renderCypher(it)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil

	case *cypher.MapLiteral:
		parts := make([]string, 0, len(n.Order)*2)
		for _, k := range n.Order {
			v, err := e.renderCypher(n.Entries[k])
			if err != nil {
				return "", err
			}
			parts = append(parts, "'"+escapeSQLString(k)+"'", v)
		}
		return "map(" + strings.Join(parts, ", ") + ")", nil

	case *cypher.FunctionCall:
		return e.functionCall(n)

	case *cypher.UnaryOp:
		s, err := e.renderCypher(n.Expr)
		if err != nil {
			return "", err
		}
		if n.Op == "NOT" {
			return "NOT (" + s + ")", nil
		}
		return n.Op + s, nil

	case *cypher.BinaryOp:
		return e.binaryOp(n)

	case *cypher.IsNullTest:
		s, err := e.renderCypher(n.Expr)
		if err != nil {
			return "", err
		}
		if n.Negated {
			return s + " IS NOT NULL", nil
		}
		return s + " IS NULL", nil

	case *cypher.InExpr:
		l, err := e.renderCypher(n.Expr)
		if err != nil {
			return "", err
		}
		r, err := e.renderCypher(n.List)
		if err != nil {
			return "", err
		}
		return "has(" + r + ", " + l + ")", nil

	case *cypher.CaseExpression:
		return e.caseExpr(n)

	case *cypher.ListComprehension:
		return e.listComprehension(n)

	case *cypher.PathPatternExpression:
		return "", compileerr.NewUnsupportedFeature(
			"path pattern used as a standalone expression outside shortestPath()/variable-length position", compileerr.Location{})

	default:
		return "", compileerr.NewUnsupportedFeature(fmt.Sprintf("expression kind %T", expr), compileerr.Location{})
	}
}

var binaryOpSQL = map[string]string{
	"+": "+", "-": "-", "*": "*", "/": "/", "%": "%", "^": "^",
}

func (e *exprCtx) binaryOp(n *cypher.BinaryOp) (string, error) {
	l, err := e.renderCypher(n.Left)
	if err != nil {
		return "", err
	}
	r, err := e.renderCypher(n.Right)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "AND":
		return "(" + l + ") AND (" + r + ")", nil
	case "OR":
		return "(" + l + ") OR (" + r + ")", nil
	case "=", "<", "<=", ">", ">=", "<>":
		return l + " " + n.Op + " " + r, nil
	case "STARTS WITH":
		return "startsWith(" + l + ", " + r + ")", nil
	case "ENDS WITH":
		return "endsWith(" + l + ", " + r + ")", nil
	case "CONTAINS":
		return "position(" + l + ", " + r + ") > 0", nil
	case "=~":
		return "match(" + l + ", " + r + ")", nil
	default:
		if sqlOp, ok := binaryOpSQL[n.Op]; ok {
			return "(" + l + " " + sqlOp + " " + r + ")", nil
		}
		return "", compileerr.NewUnsupportedFeature("operator "+n.Op, compileerr.Location{})
	}
}

func (e *exprCtx) caseExpr(n *cypher.CaseExpression) (string, error) {
	var b strings.Builder
	b.WriteString("CASE")
	if n.Test != nil {
		s, err := e.renderCypher(n.Test)
		if err != nil {
			return "", err
		}
		b.WriteString(" " + s)
	}
	for _, w := range n.Whens {
		cond, err := e.renderCypher(w.Condition)
		if err != nil {
			return "", err
		}
		res, err := e.renderCypher(w.Result)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHEN " + cond + " THEN " + res)
	}
	if n.Else != nil {
		s, err := e.renderCypher(n.Else)
		if err != nil {
			return "", err
		}
		b.WriteString(" ELSE " + s)
	}
	b.WriteString(" END")
	return b.String(), nil
}

// listComprehension renders `[x IN list WHERE pred | project]` as a
// ClickHouse arrayFilter/arrayMap pipeline. The comprehension variable is
// not a bound graph alias, so pred/project may only reference it as a bare
// scalar lambda argument, not via property access against the catalog.
func (e *exprCtx) listComprehension(n *cypher.ListComprehension) (string, error) {
	list, err := e.renderCypher(n.List)
	if err != nil {
		return "", err
	}
	lambdaVar := n.Variable
	result := list
	if n.Where != nil {
		pred, err := e.renderCypher(n.Where)
		if err != nil {
			return "", err
		}
		result = fmt.Sprintf("arrayFilter(%s -> %s, %s)", lambdaVar, pred, result)
	}
	if n.Project != nil {
		proj, err := e.renderCypher(n.Project)
		if err != nil {
			return "", err
		}
		result = fmt.Sprintf("arrayMap(%s -> %s, %s)", lambdaVar, proj, result)
	}
	return result, nil
}

// wholeVariableIdentity renders a bare variable reference (e.g. a function
// argument like `id(n)`'s inner n, or an equality already desugared
// upstream by filtertagging so this path is rarely hit for node/rel
// aliases) as its identifier expression.
func (e *exprCtx) wholeVariableIdentity(name string) (string, error) {
	table, ok := e.ctx.Tables[name]
	if !ok {
		return "", compileerr.NewRenderError("variable "+name+" is not defined", nil)
	}
	var id catalog.Identifier
	switch {
	case table.ResolvedNode != nil:
		id = table.ResolvedNode.ID
	case table.ResolvedRel != nil:
		id = table.ResolvedRel.EdgeID
		if id == nil {
			id = table.ResolvedRel.FromID
		}
	}
	if id == nil {
		return "", compileerr.NewUnsupportedFeature(
			"variable "+name+" referenced as a scalar value has no single resolved identifier (ambiguous type)", compileerr.Location{})
	}
	return e.tupleRef(name, id.Columns()), nil
}

func (e *exprCtx) propertyAccess(pa *cypher.PropertyAccess) (string, error) {
	v, ok := pa.Base.(*cypher.Variable)
	if !ok {
		return "", compileerr.NewUnsupportedFeature("property access on a non-variable base expression", compileerr.Location{})
	}
	table, ok := e.ctx.Tables[v.Name]
	if !ok {
		return "", compileerr.NewRenderError("variable "+v.Name+" is not defined", nil)
	}

	var mapping catalog.PropertyMapping
	var found bool
	var id catalog.Identifier
	switch {
	case table.ResolvedNode != nil:
		mapping, found = table.ResolvedNode.PropertyMappings[pa.Property]
		id = table.ResolvedNode.ID
	case table.ResolvedRel != nil:
		mapping, found = table.ResolvedRel.PropertyMappings[pa.Property]
	}
	if found {
		return e.columnRef(v.Name, mapping.Column, mapping.Expression), nil
	}
	if id != nil {
		cols := id.Columns()
		if len(cols) == 1 && cols[0] == pa.Property {
			return e.columnRef(v.Name, cols[0], ""), nil
		}
	}
	return "", compileerr.NewRenderError("unbound property "+pa.Property+" on "+v.Name, nil)
}

// functionCall dispatches well-known Cypher built-ins to their ClickHouse
// equivalents and falls back to a same-named pass-through call for anything
// else (covers most scalar math/string functions, whose names already
// coincide between the two).
func (e *exprCtx) functionCall(fc *cypher.FunctionCall) (string, error) {
	if len(fc.Namespace) > 0 {
		return "", compileerr.NewUnsupportedFeature(
			"namespaced call "+strings.Join(fc.Namespace, ".")+"."+fc.Name+" used in expression position (procedure calls are a standalone-clause concern)",
			compileerr.Location{})
	}
	name := strings.ToLower(fc.Name)
	switch name {
	case "count":
		if len(fc.Args) == 0 {
			return "count()", nil
		}
		if v, ok := fc.Args[0].(*cypher.Variable); ok && v.Name == "*" {
			return "count()", nil
		}
		arg, err := e.renderCypher(fc.Args[0])
		if err != nil {
			return "", err
		}
		if fc.Distinct {
			return "count(DISTINCT " + arg + ")", nil
		}
		return "count(" + arg + ")", nil

	case "sum", "avg", "min", "max":
		if len(fc.Args) != 1 {
			return "", compileerr.NewUnsupportedFeature(name+"() with other than one argument", compileerr.Location{})
		}
		arg, err := e.renderCypher(fc.Args[0])
		if err != nil {
			return "", err
		}
		return name + "(" + arg + ")", nil

	case "collect":
		arg, err := e.renderCypher(fc.Args[0])
		if err != nil {
			return "", err
		}
		return "groupArray(" + arg + ")", nil

	case "id":
		v, ok := fc.Args[0].(*cypher.Variable)
		if !ok {
			return "", compileerr.NewUnsupportedFeature("id() of a non-variable argument", compileerr.Location{})
		}
		return e.wholeVariableIdentity(v.Name)

	case "type":
		v, ok := fc.Args[0].(*cypher.Variable)
		if !ok {
			return "", compileerr.NewUnsupportedFeature("type() of a non-variable argument", compileerr.Location{})
		}
		table, ok := e.ctx.Tables[v.Name]
		if !ok || table.ResolvedRel == nil {
			return "", compileerr.NewUnsupportedFeature("type() on an unresolved or non-relationship variable", compileerr.Location{})
		}
		return "'" + escapeSQLString(table.ResolvedRel.Type) + "'", nil

	case "labels":
		v, ok := fc.Args[0].(*cypher.Variable)
		if !ok {
			return "", compileerr.NewUnsupportedFeature("labels() of a non-variable argument", compileerr.Location{})
		}
		table, ok := e.ctx.Tables[v.Name]
		if !ok || table.ResolvedNode == nil {
			return "", compileerr.NewUnsupportedFeature("labels() on an unresolved or non-node variable", compileerr.Location{})
		}
		return "['" + escapeSQLString(table.ResolvedNode.Label) + "']", nil

	case "tostring":
		arg, err := e.renderCypher(fc.Args[0])
		if err != nil {
			return "", err
		}
		return "toString(" + arg + ")", nil

	case "tointeger", "toint":
		arg, err := e.renderCypher(fc.Args[0])
		if err != nil {
			return "", err
		}
		return "toInt64OrNull(" + arg + ")", nil

	case "tofloat":
		arg, err := e.renderCypher(fc.Args[0])
		if err != nil {
			return "", err
		}
		return "toFloat64OrNull(" + arg + ")", nil

	case "size", "length":
		arg, err := e.renderCypher(fc.Args[0])
		if err != nil {
			return "", err
		}
		return "length(" + arg + ")", nil

	case "coalesce":
		args := make([]string, len(fc.Args))
		for i, a := range fc.Args {
			s, err := e.renderCypher(a)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return "coalesce(" + strings.Join(args, ", ") + ")", nil

	default:
		args := make([]string, len(fc.Args))
		for i, a := range fc.Args {
			s, err := e.renderCypher(a)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return fc.Name + "(" + strings.Join(args, ", ") + ")", nil
	}
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
