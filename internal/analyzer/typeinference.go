package analyzer

import (
	"sort"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// TooManyInferredTypes reports that an edge's compatible relationship-type
// set exceeded PlanCtx.MaxInferredTypes (spec.md §4.3 step 4, testable
// property 4).
type TooManyInferredTypes struct {
	Count  int
	Max    int
	Sample []string
}

func (e *TooManyInferredTypes) Error() string {
	sample := e.Sample
	if len(sample) > 5 {
		sample = sample[:5]
	}
	msg := "too many inferred relationship types: " + joinSampleEllipsis(sample, len(e.Sample) > 5)
	return msg
}

func joinSampleEllipsis(sample []string, truncated bool) string {
	out := ""
	for i, s := range sample {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	if truncated {
		out += ", ..."
	}
	return out
}

// RunTypeInference implements spec.md §4.3 "Type inference (Analyzer)":
// for each edge with a missing relationship type, apply the single-schema
// shortcut, node-constrained inference, anonymous-edge expansion, and the
// max-inferred-types cap, in that order. Node labels left unresolved by the
// pattern but fixed by a uniquely-inferred adjacent edge are back-filled.
func RunTypeInference(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	return rewrite(plan, func(p planner.LogicalPlan) (planner.LogicalPlan, error) {
		rel, ok := p.(*planner.GraphRel)
		if !ok {
			return p, nil
		}
		if _, unresolved := rel.Center.(*planner.UnresolvedScan); !unresolved {
			return p, nil
		}
		return resolveEdgeType(ctx, rel)
	})
}

func resolveEdgeType(ctx *planner.PlanCtx, rel *planner.GraphRel) (planner.LogicalPlan, error) {
	// A variable-length or shortest-path edge's declared endpoints describe
	// the whole path, not the edge immediately adjacent to them, so the
	// ordinary node-constrained narrowing below (built for single-hop
	// edges) does not apply: internal/pathexpand resolves per-hop
	// compatibility itself once it enumerates concrete-type paths.
	if rel.VarLength != nil || rel.ShortestPath != cypher.ShortestPathNone {
		return resolveDeferredEdgeType(ctx, rel)
	}

	edgeTable := ctx.TableFor(rel.EdgeAlias)
	fromLabel := resolvedLabel(ctx, rel.LeftAlias)
	toLabel := resolvedLabel(ctx, rel.RightAlias)

	// Step 1: single-schema shortcut.
	if len(ctx.Schema.RelTypeIndex) == 1 {
		for t := range ctx.Schema.RelTypeIndex {
			edgeTable.Labels = []string{t}
		}
		return installEdgeType(ctx, rel, edgeTable.Labels)
	}

	// Step 2/3: node-constrained inference, falling back to anonymous-edge
	// expansion (every catalog relationship type) when no type was named
	// and both endpoints remain untyped.
	candidates := ctx.Schema.RelationshipsByEndpoints(edgeTable.Labels, fromLabel, toLabel)
	if len(candidates) == 0 && len(edgeTable.Labels) == 0 && fromLabel == nil && toLabel == nil {
		candidates = ctx.Schema.AllRelationships()
	}
	if len(candidates) == 0 {
		return nil, compileerr.NewAnalysisError(compileerr.AnalysisUnknownVariable,
			"no relationship schema compatible with pattern at "+rel.EdgeAlias, compileerr.Location{})
	}

	types := uniqueSortedTypes(candidates)

	// Step 4: cap check.
	if len(types) > ctx.MaxInferredTypes {
		return nil, &TooManyInferredTypes{Count: len(types), Max: ctx.MaxInferredTypes, Sample: types}
	}
	return installEdgeType(ctx, rel, types)
}

// resolveDeferredEdgeType leaves a variable-length or shortest-path edge's
// type set as declared (or, when anonymous, every catalog relationship
// type), under the same inferred-types cap as an ordinary anonymous edge,
// without narrowing by the pattern's own endpoint labels and without
// backfilling either endpoint: internal/pathexpand decides per-hop
// compatibility once it enumerates concrete paths.
func resolveDeferredEdgeType(ctx *planner.PlanCtx, rel *planner.GraphRel) (planner.LogicalPlan, error) {
	edgeTable := ctx.TableFor(rel.EdgeAlias)

	types := edgeTable.Labels
	if len(types) == 0 {
		types = uniqueSortedTypes(ctx.Schema.AllRelationships())
	}
	if len(types) == 0 {
		return nil, compileerr.NewAnalysisError(compileerr.AnalysisUnknownVariable,
			"no relationship schema compatible with pattern at "+rel.EdgeAlias, compileerr.Location{})
	}
	if len(types) > ctx.MaxInferredTypes {
		return nil, &TooManyInferredTypes{Count: len(types), Max: ctx.MaxInferredTypes, Sample: types}
	}
	edgeTable.Labels = types

	branches := make([]planner.LogicalPlan, 0, len(types))
	for _, t := range types {
		for _, relSchema := range ctx.Schema.RelationshipsByEndpoints([]string{t}, nil, nil) {
			branches = append(branches, planner.BuildRelationshipViewScan(ctx, rel.EdgeAlias, relSchema))
		}
	}
	if len(branches) == 1 {
		rel.Center = branches[0]
	} else {
		rel.Center = &planner.Union{Branches: branches, Kind: planner.UnionAll}
	}
	return rel, nil
}

func resolvedLabel(ctx *planner.PlanCtx, alias string) *string {
	t, ok := ctx.Tables[alias]
	if !ok || t.ResolvedNode == nil {
		return nil
	}
	label := t.ResolvedNode.Label
	return &label
}

func uniqueSortedTypes(rels []*catalog.RelationshipSchema) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rels {
		if !seen[r.Type] {
			seen[r.Type] = true
			out = append(out, r.Type)
		}
	}
	sort.Strings(out)
	return out
}

// installEdgeType fixes rel's center scan to either a single ViewScan (one
// candidate) or a Union of ViewScans (multiple, under the cap), back-filling
// any still-unresolved endpoint GraphNode when the chosen relationship's
// endpoint label is unambiguous.
func installEdgeType(ctx *planner.PlanCtx, rel *planner.GraphRel, types []string) (planner.LogicalPlan, error) {
	edgeTable := ctx.TableFor(rel.EdgeAlias)
	edgeTable.Labels = types

	if len(types) == 1 {
		relSchema, err := ctx.Schema.GetRelSchema(types[0], resolvedLabel(ctx, rel.LeftAlias), resolvedLabel(ctx, rel.RightAlias))
		if err != nil {
			return nil, err
		}
		edgeTable.ResolvedRel = relSchema
		rel.Center = planner.BuildRelationshipViewScan(ctx, rel.EdgeAlias, relSchema)
		backfillEndpoint(ctx, rel.LeftAlias, relSchema.FromLabel)
		backfillEndpoint(ctx, rel.RightAlias, relSchema.ToLabel)
		return rel, nil
	}

	branches := make([]planner.LogicalPlan, 0, len(types))
	for _, t := range types {
		relSchema, err := ctx.Schema.GetRelSchema(t, resolvedLabel(ctx, rel.LeftAlias), resolvedLabel(ctx, rel.RightAlias))
		if err != nil {
			return nil, err
		}
		branches = append(branches, planner.BuildRelationshipViewScan(ctx, rel.EdgeAlias, relSchema))
	}
	rel.Center = &planner.Union{Branches: branches, Kind: planner.UnionAll}
	return rel, nil
}

func backfillEndpoint(ctx *planner.PlanCtx, alias, label string) {
	if label == "" || label == catalog.AnyLabel {
		return
	}
	t := ctx.TableFor(alias)
	if t.ResolvedNode != nil || len(t.Labels) > 0 {
		return
	}
	node, err := ctx.Schema.GetNodeSchema(label)
	if err != nil {
		return
	}
	t.Labels = []string{label}
	t.ResolvedNode = node
}
