package analyzer

import (
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// RunOptionalMatch closes out the optional-match flag lifecycle (spec.md §9:
// "every alias newly introduced inside the optional subtree is marked
// optional; GraphJoinInference converts the corresponding JOINs to LEFT").
// Alias and GraphRel marking already happens at plan-construction time
// (PlanCtx.InOptionalMatch); this pass validates the result: an OPTIONAL
// MATCH edge pattern whose every endpoint is itself newly optional has
// nothing for the eventual LEFT JOIN to anchor against, so it is rejected
// rather than silently compiling to a cross join. A standalone optional
// node with no edge (`OPTIONAL MATCH (x)`) is left unvalidated: Cypher
// treats it as a genuine (if unusual) pattern in its own right, not a
// correlated extension of a prior MATCH.
func RunOptionalMatch(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	_, err := rewrite(plan, func(p planner.LogicalPlan) (planner.LogicalPlan, error) {
		rel, ok := p.(*planner.GraphRel)
		if !ok || !rel.IsOptional || !isOptionalChainRoot(rel) {
			return p, nil
		}
		if !hasNonOptionalAnchor(ctx, rel) {
			return nil, compileerr.NewAnalysisError(compileerr.AnalysisOptionalMatchViolation,
				"OPTIONAL MATCH pattern does not reference any variable bound outside the optional subtree",
				compileerr.Location{})
		}
		return p, nil
	})
	return plan, err
}

// isOptionalChainRoot reports whether rel is the first edge of its optional
// subtree rather than a later hop in the same chain; only the root needs an
// anchor, since later hops are already connected through the root.
func isOptionalChainRoot(rel *planner.GraphRel) bool {
	if left, ok := rel.Left.(*planner.GraphRel); ok && left.IsOptional {
		return false
	}
	return true
}

func hasNonOptionalAnchor(ctx *planner.PlanCtx, rel *planner.GraphRel) bool {
	if t := ctx.Tables[rel.LeftAlias]; t != nil && !t.IsOptional {
		return true
	}
	if t := ctx.Tables[rel.RightAlias]; t != nil && !t.IsOptional {
		return true
	}
	return false
}
