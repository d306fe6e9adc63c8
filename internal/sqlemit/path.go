package sqlemit

import (
	"fmt"
	"strings"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
	"github.com/cyphergraph/cyphergraph/internal/renderplan"
)

// relSchemaForPath re-derives the catalog.RelationshipSchema a
// HomogeneousPath's ViewScans were built from. HomogeneousPath carries the
// resolved ViewScans but not the schema itself, so the from/to column
// split needed for the recursive step's join predicate is recovered here
// exactly the way internal/pathexpand/homogeneous.go derived it the first
// time: swap the node labels on an incoming traversal, then look the
// schema back up.
func relSchemaForPath(ctx *planner.PlanCtx, p *planner.HomogeneousPath) (*catalog.RelationshipSchema, error) {
	fromLabel, toLabel := p.StartScan.Label, p.EndScan.Label
	if p.Direction == cypher.DirectionIncoming {
		fromLabel, toLabel = toLabel, fromLabel
	}
	return ctx.Schema.GetRelSchema(p.EdgeScan.Type, &fromLabel, &toLabel)
}

// renderRecursiveBody renders the homogeneous variable-length regime
// (spec.md §4.4): one recursive CTE tracking start_id, end_id, path_edges
// (for same-edge revisit exclusion) and path_nodes (for `UNWIND nodes(p)`).
func (e *emitter) renderRecursiveBody(cteName string, body renderplan.RecursiveBody) (string, error) {
	p := body.Path
	rel, err := relSchemaForPath(e.ctx, p)
	if err != nil {
		return "", compileerr.NewRenderError("re-resolving relationship schema for variable-length path: "+err.Error(), err)
	}

	startRef, err := tableRef(p.StartScan)
	if err != nil {
		return "", err
	}
	edgeRef, err := tableRef(p.EdgeScan)
	if err != nil {
		return "", err
	}
	endRef, err := tableRef(p.EndScan)
	if err != nil {
		return "", err
	}

	s, e2, edgeAlias := "s", "t", "e"
	startIDExpr := p.StartScan.ID.SQLTuple(s)
	endIDExpr := p.EndScan.ID.SQLTuple(e2)
	edgeFromExpr := rel.FromID.SQLTuple(edgeAlias)
	edgeToExpr := rel.ToID.SQLTuple(edgeAlias)
	edgeIdentityExpr := p.EdgeIdentity.SQLTuple(edgeAlias)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s AS start_id, %s AS end_id, [%s] AS path_edges, [%s, %s] AS path_nodes, 1 AS hop_count",
		startIDExpr, endIDExpr, edgeIdentityExpr, startIDExpr, endIDExpr)
	fmt.Fprintf(&b, " FROM %s AS %s JOIN %s AS %s ON %s = %s JOIN %s AS %s ON %s = %s",
		startRef, s, edgeRef, edgeAlias, startIDExpr, edgeFromExpr, endRef, e2, edgeToExpr, endIDExpr)

	b.WriteString(" UNION ALL ")

	recEdgeAlias, recEnd := "e", "t"
	recEdgeFromExpr := rel.FromID.SQLTuple(recEdgeAlias)
	recEdgeToExpr := rel.ToID.SQLTuple(recEdgeAlias)
	recEdgeIdentityExpr := p.EdgeIdentity.SQLTuple(recEdgeAlias)
	recEndIDExpr := p.EndScan.ID.SQLTuple(recEnd)

	maxClause := ""
	if p.MaxHops >= 0 {
		maxClause = fmt.Sprintf(" AND p.hop_count < %d", p.MaxHops)
	}
	fmt.Fprintf(&b, "SELECT p.start_id, %s AS end_id, arrayPushBack(p.path_edges, %s) AS path_edges, arrayPushBack(p.path_nodes, %s) AS path_nodes, p.hop_count + 1 AS hop_count",
		recEndIDExpr, recEdgeIdentityExpr, recEndIDExpr)
	fmt.Fprintf(&b, " FROM %s AS p JOIN %s AS %s ON p.end_id = %s JOIN %s AS %s ON %s = %s",
		cteName, edgeRef, recEdgeAlias, recEdgeFromExpr, endRef, recEnd, recEdgeToExpr, recEndIDExpr)
	fmt.Fprintf(&b, " WHERE NOT has(p.path_edges, %s)%s", recEdgeIdentityExpr, maxClause)

	inner := b.String()

	minHops := p.MinHops
	if minHops < 1 {
		minHops = 1
	}
	outer := fmt.Sprintf("SELECT start_id, end_id, path_edges, path_nodes, hop_count FROM (%s) WHERE hop_count >= %d", inner, minHops)

	switch p.ShortestPath {
	case cypher.ShortestPathSingle:
		outer = fmt.Sprintf(
			"SELECT start_id, end_id, path_edges, path_nodes, hop_count FROM (%s) ORDER BY hop_count LIMIT 1 BY start_id, end_id",
			outer)
	case cypher.ShortestPathAll:
		outer = fmt.Sprintf(
			"SELECT start_id, end_id, path_edges, path_nodes, hop_count FROM (SELECT *, min(hop_count) OVER (PARTITION BY start_id, end_id) AS min_hop_count FROM (%s)) WHERE hop_count = min_hop_count",
			outer)
	}

	return outer, nil
}

// substituteConstraint resolves an edge schema constraint's literal
// `from.<prop>`/`to.<prop>` tokens to qualified `<alias>.<column>`
// references via each endpoint's property mappings (spec.md §4.3).
func substituteConstraint(constraint, fromAlias, toAlias string, fromNode, toNode *catalog.NodeSchema) string {
	result := constraint
	if fromNode != nil {
		for name, m := range fromNode.PropertyMappings {
			result = strings.ReplaceAll(result, "from."+name, m.SQLRef(fromAlias))
		}
	}
	if toNode != nil {
		for name, m := range toNode.PropertyMappings {
			result = strings.ReplaceAll(result, "to."+name, m.SQLRef(toAlias))
		}
	}
	return result
}

// renderEnumeratedPathBody renders the heterogeneous variable-length
// regime (spec.md §4.4): every schema-guided-DFS-enumerated concrete-type
// path becomes one type-safe JOIN branch, combined with UNION ALL.
// Composite ids tuple-stringify for union compatibility across branches
// whose endpoint types may not share an identifier shape.
func (e *emitter) renderEnumeratedPathBody(body renderplan.EnumeratedPathBody) (string, error) {
	branches := make([]string, 0, len(body.Path.Branches))
	for _, br := range body.Path.Branches {
		sql, err := e.renderPathBranch(br)
		if err != nil {
			return "", err
		}
		branches = append(branches, sql)
	}
	return strings.Join(branches, " UNION ALL "), nil
}

func (e *emitter) renderPathBranch(br planner.PathBranch) (string, error) {
	startRef, err := tableRef(br.StartScan)
	if err != nil {
		return "", err
	}
	startAlias := br.StartScan.Alias

	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s AS %s", startRef, startAlias)

	prevAlias := startAlias
	prevID := br.StartScan.ID
	prevNode, _ := e.ctx.Schema.GetNodeSchema(br.StartScan.Label)

	for _, hop := range br.Hops {
		fromSide, toSide := hop.Schema.FromID, hop.Schema.ToID
		fromNode := prevNode
		toNode, _ := e.ctx.Schema.GetNodeSchema(hop.NodeLabel)
		if hop.Reversed {
			fromSide, toSide = toSide, fromSide
		}

		if hop.EdgeScan != nil {
			edgeRef, err := tableRef(hop.EdgeScan)
			if err != nil {
				return "", err
			}
			edgeAlias := hop.EdgeScan.Alias
			fmt.Fprintf(&b, " JOIN %s AS %s ON %s = %s",
				edgeRef, edgeAlias, prevID.SQLTuple(prevAlias), fromSide.SQLTuple(edgeAlias))
			for _, c := range hop.Schema.Constraints {
				b.WriteString(" AND " + substituteConstraint(c, prevAlias, edgeAlias, fromNode, toNode))
			}

			nodeRef, err := tableRef(hop.NodeScan)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, " JOIN %s AS %s ON %s = %s",
				nodeRef, hop.NodeScan.Alias, toSide.SQLTuple(edgeAlias), hop.NodeScan.ID.SQLTuple(hop.NodeScan.Alias))
			prevAlias = hop.NodeScan.Alias
			prevID = hop.NodeScan.ID
		} else {
			// FK edge: the target node's own table carries the foreign-key
			// column referencing the previous row; no separate edge join.
			nodeRef, err := tableRef(hop.NodeScan)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, " JOIN %s AS %s ON %s = %s",
				nodeRef, hop.NodeScan.Alias, prevID.SQLTuple(prevAlias), fromSide.SQLTuple(hop.NodeScan.Alias))
			for _, c := range hop.Schema.Constraints {
				b.WriteString(" AND " + substituteConstraint(c, prevAlias, hop.NodeScan.Alias, fromNode, toNode))
			}
			prevAlias = hop.NodeScan.Alias
			prevID = hop.NodeScan.ID
		}
		prevNode = toNode
	}

	endAlias := prevAlias
	relTypes := make([]string, len(br.Hops))
	for i, h := range br.Hops {
		relTypes[i] = "'" + escapeSQLString(h.RelType) + "'"
	}

	endLabel := "''"
	if len(br.Hops) > 0 {
		endLabel = "'" + escapeSQLString(br.Hops[len(br.Hops)-1].NodeLabel) + "'"
	}
	endProps := "'{}'"
	if prevNode != nil {
		args := make([]string, 0, len(prevNode.PropertyMappings))
		for name, m := range prevNode.PropertyMappings {
			args = append(args, m.SQLRef(endAlias)+" AS "+name)
		}
		if len(args) > 0 {
			endProps = "formatRowNoNewline('JSONEachRow', " + strings.Join(args, ", ") + ")"
		}
	}

	startIDExpr := "NULL"
	if br.StartScan.ID != nil {
		startIDExpr = flattenedOrQualifiedIDString(br.StartScan.ID, startAlias)
	}
	endIDExpr := "NULL"
	if prevID != nil {
		endIDExpr = flattenedOrQualifiedIDString(prevID, endAlias)
	}

	head := fmt.Sprintf("SELECT %s AS end_type, %s AS end_id, %s AS start_id, %s AS end_properties, %d AS hop_count, [%s] AS path_relationships ",
		endLabel, endIDExpr, startIDExpr, endProps, len(br.Hops), strings.Join(relTypes, ", "))
	return head + b.String(), nil
}

// flattenedOrQualifiedIDString stringifies a qualified (not flattened)
// identifier reference for a path branch's synthetic output row, since
// every column here still addresses a physical scan alias directly
// (spec.md §4.4 "Composite ids are rendered as toString(tuple(...))").
func flattenedOrQualifiedIDString(id catalog.Identifier, alias string) string {
	cols := id.Columns()
	if len(cols) == 1 {
		return "toString(" + alias + "." + cols[0] + ")"
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = alias + "." + c
	}
	return "toString(tuple(" + strings.Join(parts, ", ") + "))"
}
