// Package analyzer implements the multi-pass analyzer of SPEC_FULL.md §7:
// type inference, filter tagging, schema filtering, WITH-scope validation,
// join-context propagation, and optional-match flag lifecycle. Each pass
// consumes a LogicalPlan and PlanCtx and returns a new plan (spec.md §3
// "Lifecycle": a logical plan is immutable once a pass completes).
package analyzer

import "github.com/cyphergraph/cyphergraph/internal/planner"

// Pass is one analyzer stage.
type Pass interface {
	Name() string
	Run(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error)
}

// PassFunc adapts a function to the Pass interface.
type PassFunc struct {
	PassName string
	Fn       func(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error)
}

func (f PassFunc) Name() string { return f.PassName }
func (f PassFunc) Run(ctx *planner.PlanCtx, plan planner.LogicalPlan) (planner.LogicalPlan, error) {
	return f.Fn(ctx, plan)
}

// DefaultPipeline returns the six analyzer passes in spec order.
func DefaultPipeline() []Pass {
	return []Pass{
		PassFunc{"type_inference", RunTypeInference},
		PassFunc{"schema_filtering", RunSchemaFiltering},
		PassFunc{"filter_tagging", RunFilterTagging},
		PassFunc{"with_scope", RunWithScope},
		PassFunc{"join_context", RunJoinContext},
		PassFunc{"optional_match", RunOptionalMatch},
	}
}

// Run executes every pass in order, threading the plan through each and
// halting on the first error (spec.md §7 "Propagation").
func Run(ctx *planner.PlanCtx, plan planner.LogicalPlan, passes []Pass) (planner.LogicalPlan, error) {
	var err error
	for _, p := range passes {
		plan, err = p.Run(ctx, plan)
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// rewriteFn transforms a single plan node after its children have already
// been rewritten (post-order); it may return the node unchanged.
type rewriteFn func(planner.LogicalPlan) (planner.LogicalPlan, error)

// rewrite recursively applies fn to every node in the plan tree, post-order,
// reconstructing each variant with its rewritten children (spec.md §9
// "Polymorphism via tagged variants": passes pattern-match the variant and
// return either the node they were given or a new variant/sub-tree).
func rewrite(plan planner.LogicalPlan, fn rewriteFn) (planner.LogicalPlan, error) {
	var err error
	switch p := plan.(type) {
	case *planner.Scan, *planner.UnresolvedScan, *planner.ViewScan, *planner.GraphJoins, *planner.Empty, nil:
		return fn(plan)

	case *planner.GraphNode:
		scan, e := rewrite(p.Scan, fn)
		if e != nil {
			return nil, e
		}
		return fn(&planner.GraphNode{Alias: p.Alias, Scan: scan})

	case *planner.GraphRel:
		left, e := rewrite(p.Left, fn)
		if e != nil {
			return nil, e
		}
		center, e := rewrite(p.Center, fn)
		if e != nil {
			return nil, e
		}
		right, e := rewrite(p.Right, fn)
		if e != nil {
			return nil, e
		}
		rewritten := &planner.GraphRel{
			Left: left, Center: center, Right: right,
			LeftAlias: p.LeftAlias, RightAlias: p.RightAlias, EdgeAlias: p.EdgeAlias,
			Direction: p.Direction, VarLength: p.VarLength, ShortestPath: p.ShortestPath,
			PathVariable: p.PathVariable, OptionalLabels: p.OptionalLabels, IsOptional: p.IsOptional,
		}
		return fn(rewritten)

	case *planner.CrossJoin:
		plans := make([]planner.LogicalPlan, len(p.Plans))
		for i, c := range p.Plans {
			plans[i], err = rewrite(c, fn)
			if err != nil {
				return nil, err
			}
		}
		return fn(&planner.CrossJoin{Plans: plans})

	case *planner.Union:
		branches := make([]planner.LogicalPlan, len(p.Branches))
		for i, b := range p.Branches {
			branches[i], err = rewrite(b, fn)
			if err != nil {
				return nil, err
			}
		}
		return fn(&planner.Union{Branches: branches, Kind: p.Kind})

	case *planner.Filter:
		input, e := rewrite(p.Input, fn)
		if e != nil {
			return nil, e
		}
		return fn(&planner.Filter{Input: input, Pred: p.Pred})

	case *planner.Projection:
		input, e := rewrite(p.Input, fn)
		if e != nil {
			return nil, e
		}
		return fn(&planner.Projection{Input: input, Items: p.Items, Distinct: p.Distinct})

	case *planner.With:
		input, e := rewrite(p.Input, fn)
		if e != nil {
			return nil, e
		}
		return fn(&planner.With{Input: input, Items: p.Items, Distinct: p.Distinct, Where: p.Where})

	case *planner.OrderBy:
		input, e := rewrite(p.Input, fn)
		if e != nil {
			return nil, e
		}
		return fn(&planner.OrderBy{Input: input, Items: p.Items})

	case *planner.Skip:
		input, e := rewrite(p.Input, fn)
		if e != nil {
			return nil, e
		}
		return fn(&planner.Skip{Input: input, Count: p.Count})

	case *planner.Limit:
		input, e := rewrite(p.Input, fn)
		if e != nil {
			return nil, e
		}
		return fn(&planner.Limit{Input: input, Count: p.Count})

	default:
		return fn(plan)
	}
}

// inputOf returns a plan node's single child, or nil for leaves/multi-child
// nodes (GraphRel, CrossJoin, Union) where callers must special-case.
func inputOf(plan planner.LogicalPlan) planner.LogicalPlan {
	switch p := plan.(type) {
	case *planner.Filter:
		return p.Input
	case *planner.Projection:
		return p.Input
	case *planner.With:
		return p.Input
	case *planner.OrderBy:
		return p.Input
	case *planner.Skip:
		return p.Input
	case *planner.Limit:
		return p.Input
	default:
		return nil
	}
}
