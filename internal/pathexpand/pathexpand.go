package pathexpand

import (
	"fmt"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// Expand walks plan, replacing every GraphRel chain internal/joininfer left
// untouched (variable-length or shortest-path edges) with a
// HomogeneousPath or HeterogeneousPath. Every other operator is reassembled
// unchanged except for its children, mirroring internal/joininfer's own
// walk since analyzer's tree-rewrite helper is private to its package.
func Expand(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	switch p := plan.(type) {
	case nil, *planner.Scan, *planner.UnresolvedScan, *planner.ViewScan, *planner.GraphJoins,
		*planner.Empty, *planner.GraphNode, *planner.HomogeneousPath, *planner.HeterogeneousPath:
		return plan, nil

	case *planner.GraphRel:
		if !isDeferredChain(p) {
			return plan, nil
		}
		return buildPathExpansion(ctx, p)

	case *planner.CrossJoin:
		plans := make([]planner.LogicalPlan, len(p.Plans))
		for i, c := range p.Plans {
			next, err := Expand(ctx, c)
			if err != nil {
				return nil, err
			}
			plans[i] = next
		}
		return &planner.CrossJoin{Plans: plans}, nil

	case *planner.Union:
		branches := make([]planner.LogicalPlan, len(p.Branches))
		for i, b := range p.Branches {
			next, err := Expand(ctx, b)
			if err != nil {
				return nil, err
			}
			branches[i] = next
		}
		return &planner.Union{Branches: branches, Kind: p.Kind}, nil

	case *planner.Filter:
		input, err := Expand(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.Filter{Input: input, Pred: p.Pred}, nil

	case *planner.Projection:
		input, err := Expand(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.Projection{Input: input, Items: p.Items, Distinct: p.Distinct}, nil

	case *planner.With:
		input, err := Expand(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.With{Input: input, Items: p.Items, Distinct: p.Distinct, Where: p.Where}, nil

	case *planner.OrderBy:
		input, err := Expand(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.OrderBy{Input: input, Items: p.Items}, nil

	case *planner.Skip:
		input, err := Expand(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.Skip{Input: input, Count: p.Count}, nil

	case *planner.Limit:
		input, err := Expand(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		return &planner.Limit{Input: input, Count: p.Count}, nil

	default:
		return plan, nil
	}
}

func isDeferredChain(rel *planner.GraphRel) bool {
	return rel.VarLength != nil || rel.ShortestPath != cypher.ShortestPathNone
}

// buildPathExpansion decides between the homogeneous (single type, single
// label on both ends) and heterogeneous regimes of spec.md §4.4, then
// delegates to the matching builder. A pattern combining a polymorphic
// relationship type with a composite node identifier is rejected outright
// (spec.md §9 open question): the heterogeneous branch layout cannot carry
// a consistent id shape for both.
func buildPathExpansion(ctx *planner.PlanCtx, rel *planner.GraphRel) (planner.LogicalPlan, error) {
	relTypes := ctx.TableFor(rel.EdgeAlias).Labels
	leftLabels := ctx.TableFor(rel.LeftAlias).Labels
	rightLabels := ctx.TableFor(rel.RightAlias).Labels

	if err := rejectPolymorphicCompositeID(ctx, relTypes); err != nil {
		return nil, err
	}

	homogeneous := len(relTypes) == 1 && len(leftLabels) == 1 && len(rightLabels) == 1 &&
		isPlainScan(leftNodeScan(rel)) && isPlainScan(rightNodeScan(rel))

	if homogeneous {
		return buildHomogeneous(ctx, rel, relTypes[0], leftLabels[0], rightLabels[0])
	}

	return buildHeterogeneous(ctx, rel, relTypes, leftLabels, rightLabels)
}

func leftNodeScan(rel *planner.GraphRel) planner.LogicalPlan {
	if n, ok := rel.Left.(*planner.GraphNode); ok {
		return n.Scan
	}
	return nil
}

func rightNodeScan(rel *planner.GraphRel) planner.LogicalPlan {
	if n, ok := rel.Right.(*planner.GraphNode); ok {
		return n.Scan
	}
	return nil
}

func isPlainScan(plan planner.LogicalPlan) bool {
	_, ok := plan.(*planner.ViewScan)
	return ok
}

// rejectPolymorphicCompositeID implements the explicit rejection of spec.md
// §9: variable-length combined with both a polymorphic edge and a
// composite endpoint id is unsupported, not silently mis-compiled — a
// polymorphic edge's concrete endpoint type varies per row, and a branch
// layout keyed on a composite id cannot be rendered generically across
// that variation.
func rejectPolymorphicCompositeID(ctx *planner.PlanCtx, relTypes []string) error {
	for _, rel := range candidateRelSchemas(ctx.Schema, relTypes) {
		if !rel.IsPolymorphic() {
			continue
		}
		if (rel.FromID != nil && rel.FromID.IsComposite()) || (rel.ToID != nil && rel.ToID.IsComposite()) {
			return compileerr.NewUnsupportedFeature(
				"variable-length path combining a polymorphic relationship type with a composite endpoint identifier",
				compileerr.Location{})
		}
	}
	return nil
}

func candidateRelSchemas(schema *catalog.GraphSchema, relTypes []string) []*catalog.RelationshipSchema {
	if len(relTypes) == 0 {
		return schema.AllRelationships()
	}
	var out []*catalog.RelationshipSchema
	for _, t := range relTypes {
		out = append(out, schema.RelationshipsByEndpoints([]string{t}, nil, nil)...)
	}
	return out
}

func errNotAPlainScan(alias string) error {
	return fmt.Errorf("pathexpand: alias %q did not resolve to a single concrete scan", alias)
}
