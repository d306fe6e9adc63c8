package pathexpand

import (
	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// buildHomogeneous implements spec.md §4.4's single-type regime: the edge's
// two endpoints and relationship type each resolved to exactly one schema,
// so the traversal compiles to a single recursive CTE rather than an
// enumeration of branches. Base case is one hop; the recursive step extends
// path_edges with the schema's edge_id, or the (from_id, to_id) tuple when
// none was declared, so a path can never revisit the same edge.
func buildHomogeneous(ctx *planner.PlanCtx, rel *planner.GraphRel, relType, leftLabel, rightLabel string) (*planner.HomogeneousPath, error) {
	fromLabel, toLabel := leftLabel, rightLabel
	if rel.Direction == cypher.DirectionIncoming {
		fromLabel, toLabel = rightLabel, leftLabel
	}

	relSchema, err := ctx.Schema.GetRelSchema(relType, &fromLabel, &toLabel)
	if err != nil {
		return nil, err
	}
	leftNode, err := ctx.Schema.GetNodeSchema(leftLabel)
	if err != nil {
		return nil, err
	}
	rightNode, err := ctx.Schema.GetNodeSchema(rightLabel)
	if err != nil {
		return nil, err
	}

	startScan, ok := planner.BuildNodeViewScan(ctx, rel.LeftAlias, leftNode).(*planner.ViewScan)
	if !ok {
		return nil, errNotAPlainScan(rel.LeftAlias)
	}
	endScan, ok := planner.BuildNodeViewScan(ctx, rel.RightAlias, rightNode).(*planner.ViewScan)
	if !ok {
		return nil, errNotAPlainScan(rel.RightAlias)
	}
	edgeScan := planner.BuildRelationshipViewScan(ctx, rel.EdgeAlias, relSchema)

	edgeIdentity := relSchema.EdgeID
	if edgeIdentity == nil {
		edgeIdentity, err = catalog.NewIdentifier(append(append([]string{}, relSchema.FromID.Columns()...), relSchema.ToID.Columns()...))
		if err != nil {
			return nil, err
		}
	}

	minHops, maxHops := 1, -1
	if rel.VarLength != nil {
		if rel.VarLength.Min >= 0 {
			minHops = rel.VarLength.Min
		}
		if rel.VarLength.Max >= 0 {
			maxHops = rel.VarLength.Max
		}
	}

	return &planner.HomogeneousPath{
		StartAlias:   rel.LeftAlias,
		EndAlias:     rel.RightAlias,
		PathVariable: rel.PathVariable,
		StartScan:    startScan,
		EdgeScan:     edgeScan,
		EndScan:      endScan,
		EdgeIdentity: edgeIdentity,
		MinHops:      minHops,
		MaxHops:      maxHops,
		Direction:    rel.Direction,
		ShortestPath: rel.ShortestPath,
	}, nil
}
