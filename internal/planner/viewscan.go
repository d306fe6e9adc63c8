package planner

import "github.com/cyphergraph/cyphergraph/internal/catalog"

// BuildNodeViewScan implements the node-side ViewScan construction rules of
// spec.md §4.3: a single ViewScan for an ordinary node, a UNION ALL of
// per-(relationship,side) branches for a denormalized node, and a plain
// denormalized ViewScan when it occupies exactly one position.
func BuildNodeViewScan(ctx *PlanCtx, alias string, node *catalog.NodeSchema) LogicalPlan {
	if !node.IsDenormalized {
		return simpleNodeScan(ctx, alias, node)
	}

	positions := ctx.Schema.DenormalizedPositions(node.Label)
	if len(positions) <= 1 {
		return denormalizedNodeScan(ctx, alias, node, positions)
	}

	branches := make([]LogicalPlan, 0, len(positions))
	for _, pos := range positions {
		branches = append(branches, denormalizedBranchScan(ctx, alias, node, pos))
	}
	return &Union{Branches: branches, Kind: UnionAll}
}

func simpleNodeScan(ctx *PlanCtx, alias string, node *catalog.NodeSchema) *ViewScan {
	return &ViewScan{
		Alias:               alias,
		Database:            node.Database,
		Table:               node.Table,
		Label:               node.Label,
		ID:                  node.ID,
		PropertyMappings:    node.PropertyMappings,
		ViewParameters:      node.ViewParameters,
		ViewParameterValues: selectViewParamValues(ctx, node.ViewParameters),
		UseFinal:            node.ShouldUseFinal(),
	}
}

// denormalizedNodeScan handles a denormalized node that occupies exactly
// one (relationship, side) position: a single ViewScan carrying that side's
// endpoint-property map (spec.md §4.3, "denormalized node in exactly one
// (relationship, position)").
func denormalizedNodeScan(ctx *PlanCtx, alias string, node *catalog.NodeSchema, positions []catalog.DenormPosition) *ViewScan {
	vs := &ViewScan{
		Alias:               alias,
		Database:            node.Database,
		Table:               node.DenormalizedSourceTable,
		Label:               node.Label,
		PropertyMappings:    node.PropertyMappings,
		ViewParameters:      node.ViewParameters,
		ViewParameterValues: selectViewParamValues(ctx, node.ViewParameters),
		IsDenormalized:      true,
		UseFinal:            node.ShouldUseFinal(),
	}
	if len(positions) == 1 {
		applyDenormSide(vs, positions[0])
	}
	return vs
}

// denormalizedBranchScan builds one UNION branch for a multi-position
// denormalized node: exactly one endpoint-property map set, and the
// branch's id_column taken from that side's identifier (spec.md §4.3).
func denormalizedBranchScan(ctx *PlanCtx, alias string, node *catalog.NodeSchema, pos catalog.DenormPosition) *ViewScan {
	vs := &ViewScan{
		Alias:               alias,
		Database:            pos.Rel.Database,
		Table:               pos.Rel.Table,
		Label:               node.Label,
		ViewParameters:      pos.Rel.ViewParameters,
		ViewParameterValues: selectViewParamValues(ctx, pos.Rel.ViewParameters),
		IsDenormalized:      true,
		UseFinal:            pos.Rel.ShouldUseFinal(),
	}
	applyDenormSide(vs, pos)
	// Merge the endpoint-property map into PropertyMappings so downstream
	// full-node expansion (e.g. RETURN n) succeeds (spec.md §4.3).
	merged := make(map[string]catalog.PropertyMapping, len(vs.FromNodeProperties)+len(vs.ToNodeProperties))
	for k, v := range vs.FromNodeProperties {
		merged[k] = v
	}
	for k, v := range vs.ToNodeProperties {
		merged[k] = v
	}
	vs.PropertyMappings = merged
	return vs
}

func applyDenormSide(vs *ViewScan, pos catalog.DenormPosition) {
	if pos.FromSide {
		vs.FromNodeProperties = pos.Rel.FromNodeProperties
		vs.ID = pos.Rel.FromID
	} else {
		vs.ToNodeProperties = pos.Rel.ToNodeProperties
		vs.ID = pos.Rel.ToID
	}
}

// BuildRelationshipViewScan builds the ViewScan for a relationship's own
// scan (spec.md §4.3 "Relationship ViewScan"): from_column/to_column come
// from the schema identifier, and polymorphic discriminator columns are
// carried through unchanged.
func BuildRelationshipViewScan(ctx *PlanCtx, alias string, rel *catalog.RelationshipSchema) *ViewScan {
	vs := &ViewScan{
		Alias:               alias,
		Database:            rel.Database,
		Table:               rel.Table,
		Type:                rel.Type,
		ID:                  rel.EdgeID,
		PropertyMappings:    rel.PropertyMappings,
		ViewParameters:      rel.ViewParameters,
		ViewParameterValues: selectViewParamValues(ctx, rel.ViewParameters),
		UseFinal:            rel.ShouldUseFinal(),
		TypeColumn:          rel.TypeColumn,
		FromLabelColumn:     rel.FromLabelColumn,
		ToLabelColumn:       rel.ToLabelColumn,
	}
	if vs.ID == nil {
		vs.ID = rel.FromID
	}
	if rel.IsPolymorphic() {
		vs.SchemaFilter = polymorphicFilter(alias, rel)
	}
	return vs
}

// polymorphicFilter builds the discriminator-column equality predicate for a
// polymorphic edge reference: `type_column = 'TYPE' [AND from_label_column =
// 'Label'] [AND to_label_column = 'Label']` (spec.md scenario S5).
func polymorphicFilter(alias string, rel *catalog.RelationshipSchema) Expr {
	var operands []Expr
	if rel.TypeColumn != "" {
		operands = append(operands, Eq{
			Left:  ColumnRef{Alias: alias, Column: rel.TypeColumn},
			Right: Raw{SQL: "'" + rel.Type + "'"},
		})
	}
	if rel.FromLabelColumn != "" && rel.FromLabel != catalog.AnyLabel {
		operands = append(operands, Eq{
			Left:  ColumnRef{Alias: alias, Column: rel.FromLabelColumn},
			Right: Raw{SQL: "'" + rel.FromLabel + "'"},
		})
	}
	if rel.ToLabelColumn != "" && rel.ToLabel != catalog.AnyLabel {
		operands = append(operands, Eq{
			Left:  ColumnRef{Alias: alias, Column: rel.ToLabelColumn},
			Right: Raw{SQL: "'" + rel.ToLabel + "'"},
		})
	}
	if len(operands) == 1 {
		return operands[0]
	}
	return And{Operands: operands}
}

func selectViewParamValues(ctx *PlanCtx, names []string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := ctx.ViewParameterValues[n]; ok {
			out[n] = v
		}
	}
	return out
}
