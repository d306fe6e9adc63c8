package sqlemit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/planner"
	"github.com/cyphergraph/cyphergraph/internal/renderplan"
)

// tableRef renders a ViewScan's physical source. A parameterized view is
// rendered as `` `db.table`(p_1 = 'v_1', p_2 = 'v_2') `` only when every
// declared view parameter has a bound value; FINAL is appended afterward
// when the catalog requires or prefers it for this engine (spec.md §4.5
// emission contracts).
func tableRef(vs *planner.ViewScan) (string, error) {
	base := vs.Database + "." + vs.Table
	if len(vs.ViewParameters) > 0 {
		parts := make([]string, 0, len(vs.ViewParameters))
		for _, p := range vs.ViewParameters {
			v, ok := vs.ViewParameterValues[p]
			if !ok {
				return "", compileerr.NewRenderSubError(compileerr.RenderMissingViewParameterValue,
					"view parameter "+p+" has no bound value for "+base)
			}
			parts = append(parts, p+" = '"+escapeSQLString(v)+"'")
		}
		base = "`" + base + "`(" + strings.Join(parts, ", ") + ")"
	}
	if vs.UseFinal {
		base += " FINAL"
	}
	return base, nil
}

// isAmbiguousAlias reports whether alias's type was left unresolved to a
// single catalog entity (internal/analyzer/filtertagging.go's
// resolvePropertyAccess requires ctx.Tables[alias].ResolvedNode or
// .ResolvedRel to be set before it will resolve any property access
// against that alias). A query that compiled successfully can therefore
// never reference a property of an ambiguous alias downstream — only the
// whole entity — which licenses collapsing its scan to the
// (label, id, properties-json) triple below rather than a per-property
// flattened column set.
func isAmbiguousAlias(ctx *planner.PlanCtx, alias string) bool {
	t, ok := ctx.Tables[alias]
	if !ok {
		return false
	}
	return t.ResolvedNode == nil && t.ResolvedRel == nil
}

// selectColumnsFor builds the flattened SELECT list for one scan alias:
// `<alias>.<col> AS <alias>__<col>` for its identifier and every declared
// property, plus any denormalized endpoint-property maps. An ambiguous
// alias (see isAmbiguousAlias) collapses instead to the synthetic
// label/id/properties-json triple every heterogeneous UNION branch for
// that alias shares (spec.md §9 "MATCH (n) RETURN n" with no label, and a
// multi-type relationship feeding a JoinBody).
func selectColumnsFor(ctx *planner.PlanCtx, vs *planner.ViewScan) []string {
	if isAmbiguousAlias(ctx, vs.Alias) {
		return tripleColumns(vs)
	}

	var cols []string
	if vs.ID != nil {
		for _, c := range vs.ID.Columns() {
			cols = append(cols, fmt.Sprintf("%s.%s AS %s__%s", vs.Alias, c, vs.Alias, c))
		}
	}
	cols = append(cols, propertyColumns(vs.Alias, vs.PropertyMappings)...)
	cols = append(cols, propertyColumns(vs.Alias, vs.FromNodeProperties)...)
	cols = append(cols, propertyColumns(vs.Alias, vs.ToNodeProperties)...)
	return cols
}

func propertyColumns(alias string, mappings map[string]catalog.PropertyMapping) []string {
	if len(mappings) == 0 {
		return nil
	}
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]string, 0, len(names))
	for _, name := range names {
		m := mappings[name]
		cols = append(cols, fmt.Sprintf("%s AS %s__%s", m.SQLRef(alias), alias, name))
	}
	return cols
}

// tripleColumns builds the label/id/properties-json triple for an
// ambiguous-type scan branch: label_column (a string literal when the
// label is statically known, the catalog discriminator column otherwise),
// a stringified identifier, and a JSON blob of every declared property
// (spec.md §9, grounded on original_source's heterogeneous-UNION json
// packaging).
func tripleColumns(vs *planner.ViewScan) []string {
	label := "''"
	switch {
	case vs.Label != "":
		label = "'" + escapeSQLString(vs.Label) + "'"
	case vs.Type != "":
		label = "'" + escapeSQLString(vs.Type) + "'"
	case vs.TypeColumn != "":
		label = vs.Alias + "." + vs.TypeColumn
	}

	idExpr := "NULL"
	if vs.ID != nil {
		idExpr = catalog.ToStringExpr(vs.ID, vs.Alias)
	}

	return []string{
		label + " AS " + vs.Alias + "__label",
		idExpr + " AS " + vs.Alias + "__id",
		jsonPropertiesSQLForScan(vs) + " AS " + vs.Alias + "__properties",
	}
}

// jsonPropertiesSQL packages alias's mapped properties into a single
// `formatRowNoNewline('JSONEachRow', ...)` column, preserving native scalar
// types rather than stringifying everything (spec.md §4.5: "to preserve
// native scalar types (integers stay integers, dates stay dates)"). prefix
// is prepended to every emitted key, used to disambiguate a denormalized
// node's two endpoint-property maps when both are present on one scan.
func jsonPropertiesSQL(alias, prefix string, mappings map[string]catalog.PropertyMapping) []string {
	if len(mappings) == 0 {
		return nil
	}
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]string, 0, len(names))
	for _, name := range names {
		args = append(args, mappings[name].SQLRef(alias)+" AS "+prefix+name)
	}
	return args
}

// jsonPropertiesSQLForScan builds the full `<alias>__properties` JSON
// expression for vs, merging PropertyMappings with any denormalized
// endpoint-property maps. When both endpoint maps are present (a
// denormalized node occupying both positions of the same relationship) the
// `_s_`/`_e_` key prefixes keep the two sides from colliding on a shared
// property name (spec.md §4.5).
func jsonPropertiesSQLForScan(vs *planner.ViewScan) string {
	var args []string
	args = append(args, jsonPropertiesSQL(vs.Alias, "", vs.PropertyMappings)...)
	if len(vs.FromNodeProperties) > 0 && len(vs.ToNodeProperties) > 0 {
		args = append(args, jsonPropertiesSQL(vs.Alias, "_s_", vs.FromNodeProperties)...)
		args = append(args, jsonPropertiesSQL(vs.Alias, "_e_", vs.ToNodeProperties)...)
	} else {
		args = append(args, jsonPropertiesSQL(vs.Alias, "", vs.FromNodeProperties)...)
		args = append(args, jsonPropertiesSQL(vs.Alias, "", vs.ToNodeProperties)...)
	}
	if len(args) == 0 {
		return "'{}'"
	}
	return "formatRowNoNewline('JSONEachRow', " + strings.Join(args, ", ") + ")"
}

// renderScanBody renders a ScanBody: `SELECT <cols> FROM <table> [FINAL]
// [WHERE <schema filter>]`.
func (e *emitter) renderScanBody(body renderplan.ScanBody) (string, error) {
	vs := body.Scan
	cols := selectColumnsFor(e.ctx, vs)
	if len(cols) == 0 {
		cols = []string{"1"}
	}
	ref, err := tableRef(vs)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("SELECT " + strings.Join(cols, ", ") + " FROM " + ref)
	if vs.SchemaFilter != nil {
		ec := &exprCtx{ctx: e.ctx, binder: e.binder, qualified: true}
		pred, err := ec.renderExpr(vs.SchemaFilter)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHERE " + pred)
	}
	return b.String(), nil
}

// renderJoinBody renders a GraphJoins anchor-plus-joins shape: one anchor
// FROM table, a sequence of INNER/LEFT JOINs against further physical
// tables (never a prior CTE — a GraphJoins body is always leaf-level,
// spec.md §4.3 graph-join inference), each with its join predicate rendered
// in qualified (not flattened) mode since every table referenced is a
// physical scan here.
func (e *emitter) renderJoinBody(body renderplan.JoinBody) (string, error) {
	joins := body.Joins
	ec := &exprCtx{ctx: e.ctx, binder: e.binder, qualified: true}

	var cols []string
	cols = append(cols, selectColumnsFor(e.ctx, joins.Anchor)...)
	for _, j := range joins.Joins {
		cols = append(cols, selectColumnsFor(e.ctx, j.Scan)...)
	}
	if len(cols) == 0 {
		cols = []string{"1"}
	}

	anchorRef, err := tableRef(joins.Anchor)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("SELECT " + strings.Join(cols, ", ") + " FROM " + anchorRef)
	if joins.Anchor.Alias != "" {
		b.WriteString(" AS " + joins.Anchor.Alias)
	}

	var wherePreds []string
	if joins.Anchor.SchemaFilter != nil {
		pred, err := ec.renderExpr(joins.Anchor.SchemaFilter)
		if err != nil {
			return "", err
		}
		wherePreds = append(wherePreds, pred)
	}

	for _, j := range joins.Joins {
		kind := "INNER JOIN"
		if j.Kind == planner.JoinLeft {
			kind = "LEFT JOIN"
		}
		joinRef, err := tableRef(j.Scan)
		if err != nil {
			return "", err
		}
		b.WriteString(" " + kind + " " + joinRef + " AS " + j.Alias)
		pred, err := ec.renderExpr(j.Pred)
		if err != nil {
			return "", err
		}
		if j.Scan.SchemaFilter != nil {
			filterPred, err := ec.renderExpr(j.Scan.SchemaFilter)
			if err != nil {
				return "", err
			}
			pred = "(" + pred + ") AND (" + filterPred + ")"
		}
		b.WriteString(" ON " + pred)
	}

	if len(wherePreds) > 0 {
		b.WriteString(" WHERE " + strings.Join(wherePreds, " AND "))
	}
	return b.String(), nil
}
