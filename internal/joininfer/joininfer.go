// Package joininfer implements spec.md §4.3 "Graph-join inference": it
// converts each GraphRel edge (or left-nested chain of edges) in a logical
// plan into a GraphJoins operator — an anchor FROM table plus an ordered
// list of INNER/LEFT joins — choosing a join strategy per edge from the
// edge's resolved catalog schema (SingleTableScan, FK-edge,
// Denormalized-both, or Standard).
package joininfer

import (
	"fmt"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// Infer walks plan, replacing every GraphRel (or left-nested chain of
// GraphRels) with a GraphJoins, or a Union of GraphJoins when an endpoint or
// edge resolved to more than one candidate ViewScan (ambiguous type
// inference, denormalized-node branching, or label-less expansion).
//
// A chain carrying a variable-length or shortest-path edge is left
// untouched: internal/pathexpand, the next stage, expands it into its own
// CTE representation (spec.md §4.4) rather than a flat join list.
func Infer(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	switch p := plan.(type) {
	case nil, *planner.Scan, *planner.UnresolvedScan, *planner.ViewScan, *planner.GraphJoins, *planner.Empty, *planner.GraphNode:
		return plan, nil

	case *planner.GraphRel:
		if chainHasDeferredFeature(p) {
			return p, nil
		}
		return buildGraphJoins(ctx, p)

	case *planner.CrossJoin:
		plans := make([]planner.LogicalPlan, len(p.Plans))
		for i, c := range p.Plans {
			next, err := Infer(ctx, c)
			if err != nil {
				return nil, err
			}
			plans[i] = next
		}
		return &planner.CrossJoin{Plans: plans}, nil

	case *planner.Union:
		branches := make([]planner.LogicalPlan, len(p.Branches))
		for i, b := range p.Branches {
			next, err := Infer(ctx, b)
			if err != nil {
				return nil, err
			}
			branches[i] = next
		}
		return &planner.Union{Branches: branches, Kind: p.Kind}, nil

	case *planner.Filter:
		input, err := Infer(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.Filter{Input: input, Pred: p.Pred}, nil

	case *planner.Projection:
		input, err := Infer(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.Projection{Input: input, Items: p.Items, Distinct: p.Distinct}, nil

	case *planner.With:
		input, err := Infer(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.With{Input: input, Items: p.Items, Distinct: p.Distinct, Where: p.Where}, nil

	case *planner.OrderBy:
		input, err := Infer(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.OrderBy{Input: input, Items: p.Items}, nil

	case *planner.Skip:
		input, err := Infer(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.Skip{Input: input, Count: p.Count}, nil

	case *planner.Limit:
		input, err := Infer(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.Limit{Input: input, Count: p.Count}, nil

	default:
		return plan, nil
	}
}

func chainHasDeferredFeature(rel *planner.GraphRel) bool {
	for r := rel; r != nil; {
		if r.VarLength != nil || r.ShortestPath != cypher.ShortestPathNone {
			return true
		}
		left, ok := r.Left.(*planner.GraphRel)
		if !ok {
			return false
		}
		r = left
	}
	return false
}

// flattenChain unrolls the left-nested GraphRel tree built by
// internal/planner's pattern-reshaping rule into the leftmost base node plus
// an ordered (pattern-order) list of edges.
func flattenChain(plan planner.LogicalPlan) (*planner.GraphNode, []*planner.GraphRel, error) {
	rel, ok := plan.(*planner.GraphRel)
	if !ok {
		node, ok := plan.(*planner.GraphNode)
		if !ok {
			return nil, nil, fmt.Errorf("joininfer: expected *GraphNode at chain base, got %T", plan)
		}
		return node, nil, nil
	}
	base, edges, err := flattenChain(rel.Left)
	if err != nil {
		return nil, nil, err
	}
	return base, append(edges, rel), nil
}

// scanAlternatives normalizes a node/edge's resolved scan into its list of
// concrete ViewScan alternatives: one for an ordinary ViewScan, or one per
// branch of a Union (ambiguous type inference, denormalized-node fan-out,
// or label-less expansion).
func scanAlternatives(plan planner.LogicalPlan) ([]*planner.ViewScan, error) {
	switch p := plan.(type) {
	case *planner.ViewScan:
		return []*planner.ViewScan{p}, nil
	case *planner.Union:
		out := make([]*planner.ViewScan, 0, len(p.Branches))
		for _, b := range p.Branches {
			vs, ok := b.(*planner.ViewScan)
			if !ok {
				return nil, fmt.Errorf("joininfer: unsupported nested %T inside Union branch", b)
			}
			out = append(out, vs)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("joininfer: scan is %T, expected a resolved *ViewScan (did the analyzer pipeline run first?)", plan)
	}
}

// combo is one concrete assignment of a ViewScan to every node and edge
// position in a flattened chain.
type combo struct {
	nodes []*planner.ViewScan
	edges []*planner.ViewScan
}

func cartesian(nodeAlts, edgeAlts [][]*planner.ViewScan) []combo {
	combos := []combo{{}}
	for _, alts := range nodeAlts {
		combos = expandDim(combos, alts, true)
	}
	for _, alts := range edgeAlts {
		combos = expandDim(combos, alts, false)
	}
	return combos
}

func expandDim(in []combo, alts []*planner.ViewScan, isNode bool) []combo {
	out := make([]combo, 0, len(in)*len(alts))
	for _, c := range in {
		for _, a := range alts {
			next := combo{nodes: append([]*planner.ViewScan{}, c.nodes...), edges: append([]*planner.ViewScan{}, c.edges...)}
			if isNode {
				next.nodes = append(next.nodes, a)
			} else {
				next.edges = append(next.edges, a)
			}
			out = append(out, next)
		}
	}
	return out
}

func buildGraphJoins(ctx *planner.PlanCtx, rootRel *planner.GraphRel) (planner.LogicalPlan, error) {
	base, edges, err := flattenChain(rootRel)
	if err != nil {
		return nil, err
	}

	nodeAliases := make([]string, len(edges)+1)
	nodeAliases[0] = base.Alias
	nodeAlts := make([][]*planner.ViewScan, len(edges)+1)
	nodeAlts[0], err = scanAlternatives(base.Scan)
	if err != nil {
		return nil, err
	}

	edgeAlts := make([][]*planner.ViewScan, len(edges))
	for i, e := range edges {
		nodeAliases[i+1] = e.RightAlias
		rightNode, ok := e.Right.(*planner.GraphNode)
		if !ok {
			return nil, fmt.Errorf("joininfer: GraphRel.Right is %T, expected *GraphNode", e.Right)
		}
		nodeAlts[i+1], err = scanAlternatives(rightNode.Scan)
		if err != nil {
			return nil, err
		}
		edgeAlts[i], err = scanAlternatives(e.Center)
		if err != nil {
			return nil, err
		}
	}

	if len(edges) == 1 && singleTableScanEligible(ctx, edges[0], edgeAlts[0]) {
		branches := make([]planner.LogicalPlan, 0, len(edgeAlts[0]))
		for _, scan := range edgeAlts[0] {
			branches = append(branches, &planner.GraphJoins{AnchorAlias: edges[0].EdgeAlias, Anchor: scan})
		}
		return unionOrSingle(branches), nil
	}

	combos := cartesian(nodeAlts, edgeAlts)
	branches := make([]planner.LogicalPlan, 0, len(combos))
	for _, c := range combos {
		gj, err := buildOneGraphJoins(ctx, nodeAliases, edges, c)
		if err != nil {
			return nil, err
		}
		branches = append(branches, gj)
	}
	return unionOrSingle(branches), nil
}

func unionOrSingle(branches []planner.LogicalPlan) planner.LogicalPlan {
	if len(branches) == 1 {
		return branches[0]
	}
	return &planner.Union{Branches: branches, Kind: planner.UnionAll}
}

// singleTableScanEligible implements spec.md §4.3's SingleTableScan
// optimization: applied only to a standalone (non-chained) edge whose
// endpoints are referenced nowhere outside the pattern and whose relation
// is fixed-length and non-polymorphic.
func singleTableScanEligible(ctx *planner.PlanCtx, edge *planner.GraphRel, edgeScans []*planner.ViewScan) bool {
	if edge.VarLength != nil {
		return false
	}
	if t, ok := ctx.Tables[edge.LeftAlias]; ok && t.ExternalRefs > 0 {
		return false
	}
	if t, ok := ctx.Tables[edge.RightAlias]; ok && t.ExternalRefs > 0 {
		return false
	}
	for _, vs := range edgeScans {
		if vs.SchemaFilter != nil {
			return false
		}
	}
	return true
}

func buildOneGraphJoins(ctx *planner.PlanCtx, nodeAliases []string, edges []*planner.GraphRel, c combo) (*planner.GraphJoins, error) {
	gj := &planner.GraphJoins{AnchorAlias: nodeAliases[0], Anchor: c.nodes[0]}

	for i, e := range edges {
		leftAlias, rightAlias := nodeAliases[i], nodeAliases[i+1]
		leftScan, rightScan, edgeScan := c.nodes[i], c.nodes[i+1], c.edges[i]
		fromAlias, _ := fromToAliases(e)

		kind := planner.JoinInner
		if e.IsOptional {
			kind = planner.JoinLeft
		}

		leftLabel, rightLabel := leftScan.Label, rightScan.Label
		fromLabel, toLabel := leftLabel, rightLabel
		if fromAlias != leftAlias {
			fromLabel, toLabel = rightLabel, leftLabel
		}
		resolvedRel, err := ctx.Schema.GetRelSchema(edgeScan.Type, &fromLabel, &toLabel)
		if err != nil {
			return nil, err
		}

		switch {
		case len(resolvedRel.FromNodeProperties) > 0 && len(resolvedRel.ToNodeProperties) > 0:
			// Denormalized-both: left and right are the same physical edge
			// row under different column prefixes; one join links them
			// directly without a separate edge-table reference.
			gj.Joins = append(gj.Joins, planner.JoinDescriptor{
				Kind: kind, Scan: rightScan, Alias: rightAlias,
				Pred: nodeNodePred(leftAlias, fromAlias, resolvedRel, rightAlias, rightScan.ID),
			})

		case resolvedRel.IsFKEdge:
			// FK-edge: the relationship table equals one endpoint's node
			// table, so that endpoint needs no join of its own; the other
			// endpoint joins the composite table directly on its FK column
			// (spec.md §4.3: "only one JOIN is needed").
			pred := nodeNodePred(leftAlias, fromAlias, resolvedRel, rightAlias, rightScan.ID)
			if resolvedRel.Table == rightScan.Table && resolvedRel.Table != leftScan.Table {
				// The FK columns sit on the right endpoint's row.
				pred = edgeJoinPred(leftAlias, fromAlias, leftScan.ID, rightAlias, resolvedRel)
			}
			gj.Joins = append(gj.Joins, planner.JoinDescriptor{
				Kind: kind, Scan: rightScan, Alias: rightAlias, Pred: pred,
			})

		default:
			// Standard: node, edge, node — two joins.
			gj.Joins = append(gj.Joins, planner.JoinDescriptor{
				Kind: kind, Scan: edgeScan, Alias: e.EdgeAlias,
				Pred: edgeJoinPred(leftAlias, fromAlias, leftScan.ID, e.EdgeAlias, resolvedRel),
			})
			gj.Joins = append(gj.Joins, planner.JoinDescriptor{
				Kind: kind, Scan: rightScan, Alias: rightAlias,
				Pred: nodeJoinPred(e.EdgeAlias, fromAlias, resolvedRel, rightAlias, rightScan.ID),
			})
		}
	}
	return gj, nil
}

// fromToAliases resolves which endpoint plays the schema's "from" role.
// An undirected edge (`-[...]−`, DirectionEither) is treated as left-to-right,
// matching how the catalog's from/to labels were already resolved when the
// edge's type was fixed (spec.md §5 direction-normalization rule).
func fromToAliases(rel *planner.GraphRel) (fromAlias, toAlias string) {
	if rel.Direction == cypher.DirectionIncoming {
		return rel.RightAlias, rel.LeftAlias
	}
	return rel.LeftAlias, rel.RightAlias
}

func edgeJoinPred(leftAlias, fromAlias string, leftID catalog.Identifier, edgeAlias string, rel *catalog.RelationshipSchema) planner.Expr {
	if fromAlias == leftAlias {
		return idEq(leftAlias, leftID, edgeAlias, rel.FromID)
	}
	return idEq(leftAlias, leftID, edgeAlias, rel.ToID)
}

func nodeJoinPred(edgeAlias, fromAlias string, rel *catalog.RelationshipSchema, rightAlias string, rightID catalog.Identifier) planner.Expr {
	if fromAlias == rightAlias {
		return idEq(edgeAlias, rel.FromID, rightAlias, rightID)
	}
	return idEq(edgeAlias, rel.ToID, rightAlias, rightID)
}

func nodeNodePred(leftAlias, fromAlias string, rel *catalog.RelationshipSchema, rightAlias string, rightID catalog.Identifier) planner.Expr {
	if fromAlias == leftAlias {
		return idEq(leftAlias, rel.ToID, rightAlias, rightID)
	}
	return idEq(leftAlias, rel.FromID, rightAlias, rightID)
}

// idEq builds the col_eq join predicate of spec.md §4.3: a plain column
// equality for single-column identifiers, a tuple equality for a composite
// one on either side.
func idEq(leftAlias string, leftID catalog.Identifier, rightAlias string, rightID catalog.Identifier) planner.Expr {
	if leftID.IsComposite() || rightID.IsComposite() {
		return planner.TupleEq{
			Left:  planner.TupleRef{Alias: leftAlias, Columns: leftID.Columns()},
			Right: planner.TupleRef{Alias: rightAlias, Columns: rightID.Columns()},
		}
	}
	return planner.Eq{
		Left:  planner.ColumnRef{Alias: leftAlias, Column: leftID.Columns()[0]},
		Right: planner.ColumnRef{Alias: rightAlias, Column: rightID.Columns()[0]},
	}
}
