package sqlemit

import (
	"sort"
	"strings"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
	"github.com/cyphergraph/cyphergraph/internal/renderplan"
)

// bareVariable reports whether item projects a variable with no further
// property access or computation (`RETURN n`, not `RETURN n.name`), and
// returns its name.
func bareVariable(item planner.ProjectionItem) (string, bool) {
	raw, ok := item.Expr.(planner.RawExpr)
	if !ok {
		return "", false
	}
	v, ok := raw.Expr.(*cypher.Variable)
	if !ok {
		return "", false
	}
	return v.Name, true
}

// passthroughColumnsForAlias returns the existing flattened columns that
// already represent alias in its originating CTE, so a downstream bare
// variable (`WITH n` with no further WHERE/computation) can simply reselect
// them unchanged. A non-graph alias (e.g. a prior WITH's own computed
// output column) has exactly one such column: its own name.
func (e *emitter) passthroughColumnsForAlias(alias string) []string {
	t, ok := e.ctx.Tables[alias]
	if !ok {
		return []string{alias}
	}
	if t.ResolvedNode == nil && t.ResolvedRel == nil {
		return []string{alias + "__label", alias + "__id", alias + "__properties"}
	}
	var cols []string
	var id catalog.Identifier
	var props map[string]catalog.PropertyMapping
	if t.ResolvedNode != nil {
		id = t.ResolvedNode.ID
		props = t.ResolvedNode.PropertyMappings
	} else {
		id = t.ResolvedRel.EdgeID
		if id == nil {
			id = t.ResolvedRel.FromID
		}
		props = t.ResolvedRel.PropertyMappings
	}
	if id != nil {
		for _, c := range id.Columns() {
			cols = append(cols, alias+"__"+c)
		}
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cols = append(cols, alias+"__"+name)
	}
	return cols
}

// renderProjectBody renders a ProjectBody CTE. Every item selects from
// Source's flattened column namespace; a bare graph-variable item expands
// to a passthrough of that alias's whole column family rather than a
// single value, so later stages can keep addressing its properties.
func (e *emitter) renderProjectBody(body renderplan.ProjectBody) (string, error) {
	var cols []string
	for _, item := range body.Items {
		if name, ok := bareVariable(item); ok {
			cols = append(cols, e.passthroughColumnsForAlias(name)...)
			continue
		}
		ec := &exprCtx{ctx: e.ctx, binder: e.binder, qualified: false}
		rendered, err := ec.renderExpr(item.Expr)
		if err != nil {
			return "", err
		}
		outName := item.Alias
		if outName == "" {
			outName = defaultColumnName(item.Expr)
		}
		cols = append(cols, rendered+" AS "+outName)
	}
	if len(cols) == 0 {
		cols = []string{"1"}
	}
	distinct := ""
	if body.Distinct {
		distinct = "DISTINCT "
	}
	return "SELECT " + distinct + strings.Join(cols, ", ") + " FROM " + body.Source, nil
}

// defaultColumnName derives a result column name for a projection item
// with no explicit AS, mirroring Cypher's own default-alias convention for
// the common shapes (property access uses the bare property name; a
// function call uses the function name).
func defaultColumnName(expr planner.Expr) string {
	raw, ok := expr.(planner.RawExpr)
	if !ok {
		return "expr"
	}
	switch n := raw.Expr.(type) {
	case *cypher.PropertyAccess:
		return n.Property
	case *cypher.FunctionCall:
		return strings.ToLower(n.Name)
	case *cypher.Variable:
		return n.Name
	case *cypher.Literal:
		return "literal"
	default:
		return "expr"
	}
}

// flattenedIDColumns returns id's flattened column names under alias's
// already-SELECTed CTE namespace (`alias__col`, not the qualified
// `alias.col` a physical scan uses).
func flattenedIDColumns(id catalog.Identifier, alias string) []string {
	cols := id.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "__" + c
	}
	return out
}

// flattenedIDStringExpr stringifies a flattened identifier reference,
// tuple-wrapping composite ids for union compatibility (spec.md §4.5,
// testable property 3).
func flattenedIDStringExpr(id catalog.Identifier, alias string) string {
	cols := flattenedIDColumns(id, alias)
	if len(cols) == 1 {
		return "toString(" + cols[0] + ")"
	}
	return "toString(tuple(" + strings.Join(cols, ", ") + "))"
}

// finalEntityTriple builds the `<outputName>_label`/`_id`/`_properties`
// projection for a returned graph variable (spec.md §4.5), reading from
// alias's already-flattened columns in the root CTE. An alias left
// ambiguous by type inference already carries exactly this triple, flattened
// under double-underscore names, at scan time (isAmbiguousAlias); here it
// is just renamed to the single-underscore output convention.
func (e *emitter) finalEntityTriple(alias, outputName string) []string {
	t, ok := e.ctx.Tables[alias]
	if !ok || (t.ResolvedNode == nil && t.ResolvedRel == nil) {
		return []string{
			alias + "__label AS " + outputName + "_label",
			alias + "__id AS " + outputName + "_id",
			alias + "__properties AS " + outputName + "_properties",
		}
	}

	var label string
	var id catalog.Identifier
	var props map[string]catalog.PropertyMapping
	if t.ResolvedNode != nil {
		label = t.ResolvedNode.Label
		id = t.ResolvedNode.ID
		props = t.ResolvedNode.PropertyMappings
	} else {
		label = t.ResolvedRel.Type
		id = t.ResolvedRel.EdgeID
		if id == nil {
			id = t.ResolvedRel.FromID
		}
		props = t.ResolvedRel.PropertyMappings
	}

	idExpr := "NULL"
	if id != nil {
		idExpr = flattenedIDStringExpr(id, alias)
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	propArgs := make([]string, 0, len(names))
	for _, name := range names {
		propArgs = append(propArgs, alias+"__"+name+" AS "+name)
	}
	propsExpr := "'{}'"
	if len(propArgs) > 0 {
		propsExpr = "formatRowNoNewline('JSONEachRow', " + strings.Join(propArgs, ", ") + ")"
	}

	return []string{
		"'" + escapeSQLString(label) + "' AS " + outputName + "_label",
		idExpr + " AS " + outputName + "_id",
		propsExpr + " AS " + outputName + "_properties",
	}
}
