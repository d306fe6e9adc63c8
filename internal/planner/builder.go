package planner

import (
	"fmt"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
)

// Build walks a parsed query into a LogicalPlan, filling ctx's per-alias
// side-table as it goes (spec.md §4.3). Standalone procedure CALLs bypass
// the planner entirely (spec.md §4.6) and must be detected by the caller
// before invoking Build.
func Build(ctx *PlanCtx, query *cypher.Query) (LogicalPlan, error) {
	blocks, kind := splitOnUnion(query.Clauses)
	if len(blocks) == 1 {
		return buildBlock(ctx, blocks[0])
	}

	branches := make([]LogicalPlan, 0, len(blocks))
	for _, block := range blocks {
		branchCtx := NewPlanCtx(ctx.Schema, ctx.MaxInferredTypes, ctx.MaxCTEDepth, ctx.MaxHeteroVLPLen)
		branchCtx.ViewParameterValues = ctx.ViewParameterValues
		plan, err := buildBlock(branchCtx, block)
		if err != nil {
			return nil, err
		}
		branches = append(branches, plan)
	}
	return &Union{Branches: branches, Kind: kind}, nil
}

// splitOnUnion partitions a clause sequence on its UnionClause separators,
// preserving left-to-right order (spec.md §5 "Ordering" — UNION branches
// keep source order for deterministic SQL text).
func splitOnUnion(clauses []cypher.Clause) ([][]cypher.Clause, UnionKind) {
	kind := UnionDistinct
	var blocks [][]cypher.Clause
	var current []cypher.Clause
	for _, c := range clauses {
		if u, ok := c.(*cypher.UnionClause); ok {
			blocks = append(blocks, current)
			current = nil
			if u.All {
				kind = UnionAll
			}
			continue
		}
		current = append(current, c)
	}
	blocks = append(blocks, current)
	return blocks, kind
}

func buildBlock(ctx *PlanCtx, clauses []cypher.Clause) (LogicalPlan, error) {
	var plan LogicalPlan = &Empty{}

	for _, clause := range clauses {
		switch c := clause.(type) {
		case *cypher.MatchClause:
			next, err := buildMatch(ctx, plan, c)
			if err != nil {
				return nil, err
			}
			plan = next
		case *cypher.WithClause:
			next, err := buildWith(ctx, plan, c)
			if err != nil {
				return nil, err
			}
			plan = next
		case *cypher.ReturnClause:
			next, err := buildReturn(ctx, plan, c)
			if err != nil {
				return nil, err
			}
			plan = next
		case *cypher.CallClause:
			return nil, compileerr.NewUnsupportedFeature("standalone CALL inside a MATCH/WITH pipeline", compileerr.Location{})
		default:
			return nil, fmt.Errorf("planner: unrecognized clause %T", clause)
		}
	}
	return plan, nil
}

// buildMatch folds one MATCH/OPTIONAL MATCH clause's patterns into plan,
// combining disconnected comma-patterns with CrossJoin and attaching the
// clause's WHERE predicate plus every inline-property filter collected
// while resolving the patterns (spec.md §9 inline-property desugaring).
func buildMatch(ctx *PlanCtx, plan LogicalPlan, c *cypher.MatchClause) (LogicalPlan, error) {
	wasOptional := ctx.InOptionalMatch
	if c.Optional {
		ctx.InOptionalMatch = true
	}
	defer func() { ctx.InOptionalMatch = wasOptional }()

	var inline []Expr
	patternPlans := make([]LogicalPlan, 0, len(c.Patterns))
	for i := range c.Patterns {
		p, err := buildPathPattern(ctx, &c.Patterns[i], &inline)
		if err != nil {
			return nil, err
		}
		patternPlans = append(patternPlans, p)
	}

	var matchPlan LogicalPlan
	switch {
	case len(patternPlans) == 0:
		matchPlan = plan
	case len(patternPlans) == 1 && isEmpty(plan):
		matchPlan = patternPlans[0]
	case isEmpty(plan):
		matchPlan = &CrossJoin{Plans: patternPlans}
	default:
		matchPlan = &CrossJoin{Plans: append([]LogicalPlan{plan}, patternPlans...)}
	}

	var preds []Expr
	preds = append(preds, inline...)
	if c.Where != nil {
		preds = append(preds, RawExpr{Expr: c.Where.Expr})
	}
	return wrapFilter(matchPlan, preds), nil
}

func isEmpty(p LogicalPlan) bool {
	_, ok := p.(*Empty)
	return ok
}

func wrapFilter(plan LogicalPlan, preds []Expr) LogicalPlan {
	if len(preds) == 0 {
		return plan
	}
	if len(preds) == 1 {
		return &Filter{Input: plan, Pred: preds[0]}
	}
	return &Filter{Input: plan, Pred: And{Operands: preds}}
}

// buildPathPattern builds one comma-separated pattern, reshaping multi-hop
// chains into a left-nested GraphRel tree (spec.md §9 "Pattern reshaping in
// multi-hop chains").
func buildPathPattern(ctx *PlanCtx, pp *cypher.PathPattern, inline *[]Expr) (LogicalPlan, error) {
	leftAlias := aliasForNode(ctx, pp.Nodes[0])
	current, err := buildNodePattern(ctx, leftAlias, pp.Nodes[0], inline)
	if err != nil {
		return nil, err
	}

	for i, edge := range pp.Edges {
		rightNode := pp.Nodes[i+1]
		rightAlias := aliasForNode(ctx, rightNode)
		rightPlan, err := buildNodePattern(ctx, rightAlias, rightNode, inline)
		if err != nil {
			return nil, err
		}

		edgeAlias := aliasForEdge(ctx, edge)
		edgeScan, err := buildEdgePattern(ctx, edgeAlias, edge, inline)
		if err != nil {
			return nil, err
		}

		rel := &GraphRel{
			Left:         current,
			Center:       edgeScan,
			Right:        rightPlan,
			LeftAlias:    leftAlias,
			RightAlias:   rightAlias,
			EdgeAlias:    edgeAlias,
			Direction:    edge.Direction,
			VarLength:    edge.VarLength,
			ShortestPath: pp.ShortestPath,
			PathVariable: pp.Variable,
			IsOptional:   ctx.InOptionalMatch,
		}
		if len(edge.Types) != 1 {
			rel.OptionalLabels = edge.Types
		}
		current = rel
		leftAlias = rightAlias
	}
	return current, nil
}

func aliasForNode(ctx *PlanCtx, np *cypher.NodePattern) string {
	if np.Variable != "" {
		return np.Variable
	}
	return ctx.FreshAlias("n")
}

func aliasForEdge(ctx *PlanCtx, ep *cypher.EdgePattern) string {
	if ep.Variable != "" {
		return ep.Variable
	}
	return ctx.FreshAlias("r")
}

func buildNodePattern(ctx *PlanCtx, alias string, np *cypher.NodePattern, inline *[]Expr) (LogicalPlan, error) {
	_, existed := ctx.Tables[alias]
	t := ctx.TableFor(alias)
	if np.Variable != "" {
		t.IsExplicitAlias = true
	}
	if len(np.Labels) > 0 {
		t.Labels = np.Labels
	}
	for k, v := range np.Properties {
		t.Properties[k] = v
	}
	if ctx.InOptionalMatch && !existed {
		t.IsOptional = true
	}

	if len(t.Labels) != 1 {
		// Absent or multi-label pattern: left for the type-inference pass.
		return &GraphNode{Alias: alias, Scan: &UnresolvedScan{Alias: alias}}, nil
	}

	node, err := ctx.Schema.GetNodeSchema(t.Labels[0])
	if err != nil {
		return nil, err
	}
	t.ResolvedNode = node

	filters, err := inlinePropertyFilters(alias, np.Properties, node.PropertyMappings)
	if err != nil {
		return nil, err
	}
	*inline = append(*inline, filters...)
	t.Filters = append(t.Filters, filters...)

	return &GraphNode{Alias: alias, Scan: BuildNodeViewScan(ctx, alias, node)}, nil
}

func buildEdgePattern(ctx *PlanCtx, alias string, ep *cypher.EdgePattern, inline *[]Expr) (LogicalPlan, error) {
	_, existed := ctx.Tables[alias]
	t := ctx.TableFor(alias)
	t.IsRelation = true
	if ep.Variable != "" {
		t.IsExplicitAlias = true
	}
	if len(ep.Types) > 0 {
		t.Labels = ep.Types
	}
	for k, v := range ep.Properties {
		t.Properties[k] = v
	}
	if ctx.InOptionalMatch && !existed {
		t.IsOptional = true
	}

	if len(t.Labels) != 1 {
		return &UnresolvedScan{Alias: alias}, nil
	}

	rel, err := ctx.Schema.GetRelSchema(t.Labels[0], nil, nil)
	if err != nil {
		return nil, err
	}
	t.ResolvedRel = rel

	filters, err := inlinePropertyFilters(alias, ep.Properties, rel.PropertyMappings)
	if err != nil {
		return nil, err
	}
	*inline = append(*inline, filters...)
	t.Filters = append(t.Filters, filters...)

	return BuildRelationshipViewScan(ctx, alias, rel), nil
}

// inlinePropertyFilters implements inline-property desugaring (spec.md §9):
// `(a:X {k: v})` becomes alias a with filter a.k = v. A parameter-valued
// inline property is rejected since parameter resolution needs a known
// column type, which desugaring itself cannot establish.
func inlinePropertyFilters(alias string, props map[string]cypher.Expression, mappings map[string]catalog.PropertyMapping) ([]Expr, error) {
	if len(props) == 0 {
		return nil, nil
	}
	out := make([]Expr, 0, len(props))
	for name, value := range props {
		if _, isParam := value.(*cypher.Parameter); isParam {
			return nil, compileerr.NewAnalysisError(
				compileerr.AnalysisInvalidParameterUsage,
				fmt.Sprintf("parameter used in inline property %q on %s; parameters require a resolved column type", name, alias),
				compileerr.Location{},
			)
		}
		mapping, ok := mappings[name]
		if !ok {
			return nil, compileerr.NewSchemaError(fmt.Sprintf("unknown property %q on %s", name, alias), nil)
		}
		out = append(out, Eq{
			Left:  ColumnRef{Alias: alias, Column: mapping.Column, Expression: mapping.Expression},
			Right: RawExpr{Expr: value},
		})
	}
	return out, nil
}

// buildReturn lowers a RETURN clause to Projection/OrderBy/Skip/Limit wraps
// over plan, in that order (spec.md §3).
func buildReturn(ctx *PlanCtx, plan LogicalPlan, c *cypher.ReturnClause) (LogicalPlan, error) {
	proj := &Projection{
		Input:    plan,
		Distinct: c.Distinct,
		Items:    projectionItems(c.Items),
	}
	var result LogicalPlan = proj
	if len(c.OrderBy) > 0 {
		result = &OrderBy{Input: result, Items: orderItems(c.OrderBy)}
	}
	if c.Skip != nil {
		result = &Skip{Input: result, Count: RawExpr{Expr: c.Skip}}
	}
	if c.Limit != nil {
		result = &Limit{Input: result, Count: RawExpr{Expr: c.Limit}}
	}
	return result, nil
}

// buildWith lowers a WITH clause to a With operator plus its own
// OrderBy/Skip/Limit wraps, establishing a new scope boundary (spec.md §9).
func buildWith(ctx *PlanCtx, plan LogicalPlan, c *cypher.WithClause) (LogicalPlan, error) {
	with := &With{
		Input:    plan,
		Distinct: c.Distinct,
		Items:    projectionItems(c.Items),
	}
	if c.Where != nil {
		with.Where = RawExpr{Expr: c.Where.Expr}
	}
	var result LogicalPlan = with
	if len(c.OrderBy) > 0 {
		result = &OrderBy{Input: result, Items: orderItems(c.OrderBy)}
	}
	if c.Skip != nil {
		result = &Skip{Input: result, Count: RawExpr{Expr: c.Skip}}
	}
	if c.Limit != nil {
		result = &Limit{Input: result, Count: RawExpr{Expr: c.Limit}}
	}
	return result, nil
}

func projectionItems(items []cypher.ProjectionItem) []ProjectionItem {
	out := make([]ProjectionItem, 0, len(items))
	for _, it := range items {
		out = append(out, ProjectionItem{Expr: RawExpr{Expr: it.Expr}, Alias: it.Alias})
	}
	return out
}

func orderItems(items []cypher.OrderItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItem{Expr: RawExpr{Expr: it.Expr}, Descending: it.Descending})
	}
	return out
}
