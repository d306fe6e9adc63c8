package catalog

import (
	"sort"
	"strings"
)

// AnyLabel is the polymorphic endpoint sentinel ("$any") used when a
// relationship's from/to label is resolved per-row from a discriminator
// column rather than fixed at schema time (spec.md §3 invariant 1).
const AnyLabel = "$any"

// PropertyMapping is a Cypher property name's binding: either a plain
// column reference or a scalar SQL expression (spec.md §3 invariant 6).
// Constraints and filters may only resolve Column-kind mappings.
type PropertyMapping struct {
	Column     string // set when Kind == PropertyColumn
	Expression string // set when Kind == PropertyExpression
	Kind       PropertyMappingKind
}

// PropertyMappingKind distinguishes a plain column reference from an
// arbitrary SQL expression.
type PropertyMappingKind int

const (
	PropertyColumn PropertyMappingKind = iota
	PropertyExpression
)

// SQLRef renders the mapping's column or expression qualified by alias,
// suitable for use in a SELECT list or JSON packaging call.
func (m PropertyMapping) SQLRef(alias string) string {
	if m.Kind == PropertyExpression {
		return m.Expression
	}
	return alias + "." + m.Column
}

// NewColumnMapping builds an identity column-kind property mapping.
func NewColumnMapping(column string) PropertyMapping {
	return PropertyMapping{Column: column, Kind: PropertyColumn}
}

// NodeSchema maps a label to its physical table and property bindings
// (spec.md §3).
type NodeSchema struct {
	Label    string
	Database string
	Table    string
	ID       Identifier

	PropertyMappings map[string]PropertyMapping
	ViewParameters   []string
	UseFinal         *bool
	Engine           EngineInfo

	// Denormalized-node support (spec.md §3 invariant 3): a node with no
	// standalone physical table, whose properties live on one or more
	// relationship tables.
	IsDenormalized          bool
	DenormalizedSourceTable string
	FromProperties          map[string]PropertyMapping
	ToProperties            map[string]PropertyMapping
}

// ShouldUseFinal resolves spec.md invariant 7 for this node.
func (n *NodeSchema) ShouldUseFinal() bool {
	return ShouldUseFinal(n.Engine, n.UseFinal)
}

// RelationshipSchema maps a (type, from, to) triple to its physical table
// and endpoint columns (spec.md §3).
type RelationshipSchema struct {
	Type     string
	Database string
	Table    string

	FromLabel string // may be AnyLabel
	ToLabel   string // may be AnyLabel
	FromID    Identifier
	ToID      Identifier
	EdgeID    Identifier // optional; nil means identity is (FromID,ToID)

	PropertyMappings map[string]PropertyMapping
	ViewParameters   []string
	UseFinal         *bool
	Engine           EngineInfo

	IsFKEdge bool // spec.md §3 invariant 2

	// Denormalized-endpoint property maps (spec.md §3 invariant 3).
	FromNodeProperties map[string]PropertyMapping
	ToNodeProperties    map[string]PropertyMapping

	// Polymorphic edge support (spec.md §3 invariant 4).
	TypeColumn      string
	FromLabelColumn string
	ToLabelColumn   string
	FromLabelValues []string
	ToLabelValues   []string

	Constraints []string
}

// IsPolymorphic reports whether this relationship table backs more than one
// logical (type, endpoint-label) combination (spec.md invariant 4).
func (r *RelationshipSchema) IsPolymorphic() bool {
	return r.TypeColumn != "" || r.FromLabelColumn != "" || r.ToLabelColumn != ""
}

// ShouldUseFinal resolves spec.md invariant 7 for this relationship.
func (r *RelationshipSchema) ShouldUseFinal() bool {
	return ShouldUseFinal(r.Engine, r.UseFinal)
}

// CompositeKey builds the "TYPE::FromLabel::ToLabel" disambiguation key
// used to key overloaded relationship types (spec.md §3).
func CompositeKey(relType, fromLabel, toLabel string) string {
	return relType + "::" + fromLabel + "::" + toLabel
}

// GraphSchema is the fully-resolved, read-only-after-init catalog (spec.md
// §3). It is held behind a SchemaHandle (refresh.go) for the
// concurrency model of spec.md §5.
type GraphSchema struct {
	Version         int
	DefaultDatabase string
	Nodes           map[string]*NodeSchema
	Relationships   map[string]*RelationshipSchema // keyed by CompositeKey
	RelTypeIndex    map[string][]string            // bare type -> composite keys
}

// NewGraphSchema builds an empty schema ready for insertion.
func NewGraphSchema(version int, defaultDatabase string) *GraphSchema {
	return &GraphSchema{
		Version:         version,
		DefaultDatabase: defaultDatabase,
		Nodes:           map[string]*NodeSchema{},
		Relationships:   map[string]*RelationshipSchema{},
		RelTypeIndex:    map[string][]string{},
	}
}

// InsertNode registers a node schema, erroring on a duplicate label
// (spec.md §4.1 validation).
func (g *GraphSchema) InsertNode(n *NodeSchema) error {
	if _, exists := g.Nodes[n.Label]; exists {
		return newSchemaError(ErrDuplicateLabel, "duplicate node label %q", n.Label)
	}
	g.Nodes[n.Label] = n
	return nil
}

// InsertRelationship registers a relationship schema under its composite
// key, erroring on a duplicate key (spec.md §4.1 validation).
func (g *GraphSchema) InsertRelationship(r *RelationshipSchema) error {
	key := CompositeKey(r.Type, r.FromLabel, r.ToLabel)
	if _, exists := g.Relationships[key]; exists {
		return newSchemaError(ErrDuplicateRelationshipKey, "duplicate relationship key %q", key)
	}
	g.Relationships[key] = r
	g.RelTypeIndex[r.Type] = append(g.RelTypeIndex[r.Type], key)
	return nil
}

// GetNodeSchema resolves a label to its schema (testable property 2).
func (g *GraphSchema) GetNodeSchema(label string) (*NodeSchema, error) {
	n, ok := g.Nodes[label]
	if !ok {
		return nil, newSchemaError(ErrNodeNotFound, "no node schema for label %q", label)
	}
	return n, nil
}

// GetRelSchema resolves a relationship type, optionally disambiguated by
// (from, to) endpoint labels. A fully-qualified composite-key match is
// always preferred over a bare-type lookup (spec.md §3, testable property
// 2). When from/to are both nil and the type is unambiguous (exactly one
// composite key registered under it), that single schema is returned;
// otherwise ErrAmbiguousRelationship.
func (g *GraphSchema) GetRelSchema(relType string, from, to *string) (*RelationshipSchema, error) {
	if from != nil && to != nil {
		key := CompositeKey(relType, *from, *to)
		if r, ok := g.Relationships[key]; ok {
			return r, nil
		}
		// Fall through to polymorphic $any matches on either side.
		for _, candKey := range g.RelTypeIndex[relType] {
			r := g.Relationships[candKey]
			if labelCompatible(r.FromLabel, *from) && labelCompatible(r.ToLabel, *to) {
				return r, nil
			}
		}
		return nil, newSchemaError(ErrRelationshipNotFound, "no relationship schema for %q from %q to %q", relType, *from, *to)
	}

	keys := g.RelTypeIndex[relType]
	if len(keys) == 0 {
		return nil, newSchemaError(ErrRelationshipNotFound, "no relationship schema for type %q", relType)
	}
	if len(keys) == 1 {
		return g.Relationships[keys[0]], nil
	}
	return nil, newSchemaError(ErrAmbiguousRelationship, "relationship type %q is overloaded across %d (from,to) pairs; specify endpoint labels", relType, len(keys))
}

func labelCompatible(schemaLabel, patternLabel string) bool {
	return schemaLabel == AnyLabel || schemaLabel == patternLabel
}

// Labels returns every registered node label (apoc.meta / db.labels).
func (g *GraphSchema) Labels() []string {
	out := make([]string, 0, len(g.Nodes))
	for label := range g.Nodes {
		out = append(out, label)
	}
	return out
}

// RelationshipTypes returns the deduplicated set of base relationship types
// (db.relationshipTypes, spec.md §4.6).
func (g *GraphSchema) RelationshipTypes() []string {
	out := make([]string, 0, len(g.RelTypeIndex))
	for t := range g.RelTypeIndex {
		out = append(out, t)
	}
	return out
}

// PropertyKeys returns the union of Cypher-side property names across every
// node and relationship schema (db.propertyKeys, spec.md §4.6).
func (g *GraphSchema) PropertyKeys() []string {
	seen := map[string]bool{}
	var out []string
	add := func(m map[string]PropertyMapping) {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	for _, n := range g.Nodes {
		add(n.PropertyMappings)
		add(n.FromProperties)
		add(n.ToProperties)
	}
	for _, r := range g.Relationships {
		add(r.PropertyMappings)
		add(r.FromNodeProperties)
		add(r.ToNodeProperties)
	}
	return out
}

// AllRelationships returns every distinct relationship schema, de-duplicated
// by composite key (used by anonymous-edge expansion, spec.md §4.3 step 3).
func (g *GraphSchema) AllRelationships() []*RelationshipSchema {
	out := make([]*RelationshipSchema, 0, len(g.Relationships))
	for _, r := range g.Relationships {
		out = append(out, r)
	}
	return out
}

// RelationshipsByEndpoints returns every relationship schema compatible with
// the given (from, to) labels under the pattern's direction, used by
// node-constrained inference (spec.md §4.3 step 2). A nil from/to label
// means "unconstrained" for that side.
func (g *GraphSchema) RelationshipsByEndpoints(relTypes []string, from, to *string) []*RelationshipSchema {
	var candidates []*RelationshipSchema
	consider := func(r *RelationshipSchema) {
		if from != nil && !labelCompatibleValues(r.FromLabel, *from, r.FromLabelValues) {
			return
		}
		if to != nil && !labelCompatibleValues(r.ToLabel, *to, r.ToLabelValues) {
			return
		}
		candidates = append(candidates, r)
	}
	if len(relTypes) == 0 {
		for _, r := range g.Relationships {
			consider(r)
		}
		return candidates
	}
	for _, t := range relTypes {
		for _, key := range g.RelTypeIndex[t] {
			consider(g.Relationships[key])
		}
	}
	return candidates
}

// DenormPosition is one (relationship, side) pair that contributes
// properties to a denormalized node's physical row (spec.md §4.3 ViewScan
// construction rules, "denormalized node appearing in more than one
// relationship table").
type DenormPosition struct {
	Rel      *RelationshipSchema
	FromSide bool // true when label occupies the relationship's from-side
}

// DenormalizedPositions returns every (relationship, side) pair referencing
// label as a denormalized endpoint, in a stable order (by relationship
// composite key) so repeated planning of the same schema yields identical
// UNION branch ordering (spec.md testable property 1).
func (g *GraphSchema) DenormalizedPositions(label string) []DenormPosition {
	var out []DenormPosition
	keys := make([]string, 0, len(g.Relationships))
	for k := range g.Relationships {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r := g.Relationships[k]
		if r.FromLabel == label && len(r.FromNodeProperties) > 0 {
			out = append(out, DenormPosition{Rel: r, FromSide: true})
		}
		if r.ToLabel == label && len(r.ToNodeProperties) > 0 {
			out = append(out, DenormPosition{Rel: r, FromSide: false})
		}
	}
	return out
}

func labelCompatibleValues(schemaLabel, patternLabel string, declaredValues []string) bool {
	if schemaLabel != AnyLabel {
		return schemaLabel == patternLabel
	}
	if len(declaredValues) == 0 {
		return true
	}
	for _, v := range declaredValues {
		if v == patternLabel {
			return true
		}
	}
	return false
}

// normalizeNamingConvention converts an auto-discovered snake_case column
// name to camelCase when requested (spec.md §4.1), grounded on
// original_source's snake_to_camel_case.
func normalizeNamingConvention(name, convention string) string {
	if convention != "camelCase" {
		return name
	}
	parts := strings.Split(name, "_")
	var sb strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			sb.WriteString(p)
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}
