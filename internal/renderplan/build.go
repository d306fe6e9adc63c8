package renderplan

import (
	"fmt"

	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/planner"
)

// Build lowers plan into a RenderPlan, rejecting a DAG whose CTE count
// exceeds ctx.MaxCTEDepth (spec.md §4.5, §6 "compile_request limits").
func Build(ctx *planner.PlanCtx, plan planner.LogicalPlan) (*RenderPlan, error) {
	b := &builder{ctx: ctx}
	root, err := b.build(plan)
	if err != nil {
		return nil, err
	}
	if ctx.MaxCTEDepth > 0 && len(b.ctes) > ctx.MaxCTEDepth {
		return nil, compileerr.NewRenderSubError(compileerr.RenderCTEDepthExceeded,
			fmt.Sprintf("query compiles to %d CTEs, exceeding the configured maximum of %d", len(b.ctes), ctx.MaxCTEDepth))
	}
	return &RenderPlan{CTEs: b.ctes, Root: root, FinalItems: finalItems(plan)}, nil
}

type builder struct {
	ctx   *planner.PlanCtx
	ctes  []CTE
	count int
}

func (b *builder) emit(prefix string, body CTEBody, dependsOn ...string) string {
	b.count++
	name := fmt.Sprintf("%s_%d", prefix, b.count)
	b.ctes = append(b.ctes, CTE{Name: name, Body: body, Columns: columnsFor(body), DependsOn: dependsOn})
	return name
}

func (b *builder) build(plan planner.LogicalPlan) (string, error) {
	switch p := plan.(type) {
	case *planner.GraphNode:
		return b.build(p.Scan)

	case *planner.ViewScan:
		return b.emit("scan", ScanBody{Scan: p}), nil

	case *planner.GraphJoins:
		return b.emit("join", JoinBody{Joins: p}), nil

	case *planner.HomogeneousPath:
		return b.emit("vlp", RecursiveBody{Path: p}), nil

	case *planner.HeterogeneousPath:
		return b.emit("vlp", EnumeratedPathBody{Path: p}), nil

	case *planner.Empty:
		return b.emit("empty", EmptyBody{}), nil

	case *planner.Filter:
		src, err := b.build(p.Input)
		if err != nil {
			return "", err
		}
		return b.emit("filter", FilterBody{Source: src, Pred: p.Pred}, src), nil

	case *planner.Projection:
		src, err := b.build(p.Input)
		if err != nil {
			return "", err
		}
		return b.emit("project", ProjectBody{Source: src, Items: p.Items, Distinct: p.Distinct}, src), nil

	case *planner.With:
		src, err := b.build(p.Input)
		if err != nil {
			return "", err
		}
		projected := b.emit("with", ProjectBody{Source: src, Items: p.Items, Distinct: p.Distinct}, src)
		if p.Where == nil {
			return projected, nil
		}
		return b.emit("with_filter", FilterBody{Source: projected, Pred: p.Where}, projected), nil

	case *planner.OrderBy:
		src, err := b.build(p.Input)
		if err != nil {
			return "", err
		}
		return b.emit("order", OrderByBody{Source: src, Items: p.Items}, src), nil

	case *planner.Skip:
		src, err := b.build(p.Input)
		if err != nil {
			return "", err
		}
		return b.emit("skip", SliceBody{Source: src, Skip: p.Count}, src), nil

	case *planner.Limit:
		src, err := b.build(p.Input)
		if err != nil {
			return "", err
		}
		return b.emit("limit", SliceBody{Source: src, Limit: p.Count}, src), nil

	case *planner.Union:
		members := make([]string, len(p.Branches))
		for i, br := range p.Branches {
			m, err := b.build(br)
			if err != nil {
				return "", err
			}
			members[i] = m
		}
		return b.emit("union", UnionBody{Members: members, Kind: p.Kind}, members...), nil

	case *planner.CrossJoin:
		members := make([]string, len(p.Plans))
		for i, c := range p.Plans {
			m, err := b.build(c)
			if err != nil {
				return "", err
			}
			members[i] = m
		}
		return b.emit("cross", CrossJoinBody{Members: members}, members...), nil

	case *planner.UnresolvedScan:
		return "", compileerr.NewRenderError("alias "+p.Alias+" was left unresolved past analysis", nil)

	case *planner.GraphRel:
		return "", compileerr.NewRenderError(
			"relationship chain at "+p.EdgeAlias+" was not resolved to a join or path expansion before rendering", nil)

	default:
		return "", compileerr.NewUnsupportedFeature(fmt.Sprintf("render plan: unsupported logical plan node %T", plan), compileerr.Location{})
	}
}

// finalItems drills down through the outermost OrderBy/Skip/Limit wrappers
// (buildReturn/buildWith's own wrapping order, internal/planner/builder.go)
// to the innermost Projection or With, whose Items are the query's actual
// returned columns: the shape internal/sqlemit needs to decide which output
// columns are whole-graph-variable expansions (spec.md §4.5). A Union of
// RETURN branches takes its first branch's Items, which by Cypher UNION
// column-matching rules share the same arity and names as every other
// branch.
func finalItems(plan planner.LogicalPlan) []planner.ProjectionItem {
	switch p := plan.(type) {
	case *planner.Limit:
		return finalItems(p.Input)
	case *planner.Skip:
		return finalItems(p.Input)
	case *planner.OrderBy:
		return finalItems(p.Input)
	case *planner.Projection:
		return p.Items
	case *planner.With:
		return p.Items
	case *planner.Union:
		if len(p.Branches) > 0 {
			return finalItems(p.Branches[0])
		}
	}
	return nil
}

// columnsFor is best-effort and informational only; internal/sqlemit
// derives the authoritative column set itself while walking a body, using
// the catalog schema it has direct access to.
func columnsFor(body CTEBody) []OutputColumn {
	scan, ok := body.(ScanBody)
	if !ok {
		return nil
	}
	var cols []OutputColumn
	if scan.Scan.ID != nil {
		for _, c := range scan.Scan.ID.Columns() {
			cols = append(cols, OutputColumn{Name: scan.Scan.Alias + "__" + c})
		}
	}
	for name := range scan.Scan.PropertyMappings {
		cols = append(cols, OutputColumn{Name: scan.Scan.Alias + "__" + name})
	}
	return cols
}
