package pathexpand

import (
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// buildHeterogeneous implements spec.md §4.4's multi-type regime: a
// recursive CTE is unsafe once more than one node/edge type is in play
// (ids across types can collide), so instead every concrete-type path the
// schema admits is enumerated ahead of time and combined with UNION ALL.
// Enumeration is capped at ctx.MaxHeteroVLPLen; an unbounded or
// over-length request is rejected rather than silently truncated.
func buildHeterogeneous(ctx *planner.PlanCtx, rel *planner.GraphRel, relTypes, leftLabels, rightLabels []string) (*planner.HeterogeneousPath, error) {
	minHops, maxHops := 1, -1
	if rel.VarLength != nil {
		if rel.VarLength.Min >= 0 {
			minHops = rel.VarLength.Min
		}
		if rel.VarLength.Max >= 0 {
			maxHops = rel.VarLength.Max
		}
	}
	if maxHops < 0 || maxHops > ctx.MaxHeteroVLPLen {
		return nil, compileerr.NewUnsupportedFeature(
			"variable-length path spanning more than one node or relationship type must declare an upper bound within the configured heterogeneous length cap",
			compileerr.Location{})
	}

	startLabels := leftLabels
	if len(startLabels) == 0 {
		startLabels = ctx.Schema.Labels()
	}
	endLabels := rightLabels

	enumerations := enumerateHeterogeneousPaths(ctx.Schema, startLabels, relTypes, endLabels, minHops, maxHops, rel.Direction)

	branches := make([]planner.PathBranch, 0, len(enumerations))
	for _, e := range enumerations {
		branch, err := buildBranch(ctx, rel, e)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}

	return &planner.HeterogeneousPath{
		StartAlias:   rel.LeftAlias,
		EndAlias:     rel.RightAlias,
		PathVariable: rel.PathVariable,
		ShortestPath: rel.ShortestPath,
		Branches:     branches,
	}, nil
}

func buildBranch(ctx *planner.PlanCtx, rel *planner.GraphRel, e enumeration) (planner.PathBranch, error) {
	startNode, err := ctx.Schema.GetNodeSchema(e.start)
	if err != nil {
		return planner.PathBranch{}, err
	}
	startScan, err := asViewScan(planner.BuildNodeViewScan(ctx, rel.LeftAlias, startNode), rel.LeftAlias)
	if err != nil {
		return planner.PathBranch{}, err
	}

	hops := make([]planner.PathHop, 0, len(e.hops))
	for _, h := range e.hops {
		targetLabel := h.toLabel
		if h.reversed {
			targetLabel = h.fromLabel
		}
		targetNode, err := ctx.Schema.GetNodeSchema(targetLabel)
		if err != nil {
			return planner.PathBranch{}, err
		}
		nodeScan, err := asViewScan(planner.BuildNodeViewScan(ctx, rel.EdgeAlias+"_"+targetLabel, targetNode), targetLabel)
		if err != nil {
			return planner.PathBranch{}, err
		}

		ph := planner.PathHop{
			RelType:   h.relType,
			Reversed:  h.reversed,
			Schema:    h.schema,
			NodeScan:  nodeScan,
			NodeLabel: targetLabel,
		}
		if !h.schema.IsFKEdge {
			ph.EdgeScan = planner.BuildRelationshipViewScan(ctx, rel.EdgeAlias+"_"+h.relType, h.schema)
		}
		hops = append(hops, ph)
	}

	return planner.PathBranch{StartScan: startScan, Hops: hops}, nil
}

func asViewScan(plan planner.LogicalPlan, alias string) (*planner.ViewScan, error) {
	vs, ok := plan.(*planner.ViewScan)
	if !ok {
		return nil, errNotAPlainScan(alias)
	}
	return vs, nil
}
