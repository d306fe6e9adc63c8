package analyzer

import (
	"sort"

	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// RunSchemaFiltering resolves every GraphNode whose scan is still an
// UnresolvedScan after type inference. An alias type inference managed to
// back-fill (PlanCtx.TableFor(alias).ResolvedNode) gets its concrete
// ViewScan built now; a genuinely label-less node (e.g. `MATCH (n) RETURN
// n`, spec.md §4.5) expands to a UNION ALL of one ViewScan per catalog
// label, matching the emitter's label-less projection rule.
func RunSchemaFiltering(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	return rewrite(plan, func(p planner.LogicalPlan) (planner.LogicalPlan, error) {
		node, ok := p.(*planner.GraphNode)
		if !ok {
			return p, nil
		}
		if _, unresolved := node.Scan.(*planner.UnresolvedScan); !unresolved {
			return p, nil
		}
		return resolveNodeScan(ctx, node)
	})
}

func resolveNodeScan(ctx *planner.PlanCtx, node *planner.GraphNode) (planner.LogicalPlan, error) {
	table := ctx.TableFor(node.Alias)
	if table.ResolvedNode != nil {
		node.Scan = planner.BuildNodeViewScan(ctx, node.Alias, table.ResolvedNode)
		return node, nil
	}

	labels := ctx.Schema.Labels()
	sort.Strings(labels)
	if len(labels) == 0 {
		return node, nil
	}
	if len(labels) == 1 {
		n, err := ctx.Schema.GetNodeSchema(labels[0])
		if err != nil {
			return nil, err
		}
		table.Labels = []string{labels[0]}
		table.ResolvedNode = n
		node.Scan = planner.BuildNodeViewScan(ctx, node.Alias, n)
		return node, nil
	}

	branches := make([]planner.LogicalPlan, 0, len(labels))
	for _, label := range labels {
		n, err := ctx.Schema.GetNodeSchema(label)
		if err != nil {
			return nil, err
		}
		branches = append(branches, planner.BuildNodeViewScan(ctx, node.Alias, n))
	}
	node.Scan = &planner.Union{Branches: branches, Kind: planner.UnionAll}
	return node, nil
}
