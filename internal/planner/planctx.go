package planner

import (
	"strconv"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
)

// TableCtx is the per-alias side-table entry owned by PlanCtx (spec.md §3
// "Lifecycle"). It accumulates state across planning and every analyzer
// pass rather than living on the plan tree itself, so passes can mutate an
// alias's bookkeeping without rebuilding the plan around it.
type TableCtx struct {
	Alias string

	// Labels holds the declared node label(s) or relationship type(s).
	// More than one entry for a relationship means the type is still
	// ambiguous and awaits type inference (spec.md §4.3).
	Labels []string

	// IsRelation distinguishes a relationship alias from a node alias.
	IsRelation bool

	// IsExplicitAlias is false for an anonymous pattern element the planner
	// named internally (e.g. an unnamed edge `-[:T]->`).
	IsExplicitAlias bool

	// Properties holds inline pattern properties (`{k: v}`) before
	// inline-property desugaring converts them into equality filters
	// (spec.md §9).
	Properties map[string]cypher.Expression

	// Filters accumulates predicates scoped to this alias: desugared inline
	// properties, WHERE-clause conjuncts attributable to this alias alone,
	// and polymorphic discriminator filters.
	Filters []Expr

	// IsOptional is set once this alias is introduced inside an OPTIONAL
	// MATCH subtree (spec.md §9). The optional-match analyzer pass reads it
	// to find an endpoint bound outside the optional subtree; graph-join
	// inference takes LEFT joins from GraphRel.IsOptional instead.
	IsOptional bool

	// ResolvedNode / ResolvedRel stay nil until the planner or type
	// inference fixes this alias to a single catalog entity.
	ResolvedNode *catalog.NodeSchema
	ResolvedRel  *catalog.RelationshipSchema

	// ExternalRefs counts references to this alias outside the GraphRel that
	// introduced it: WHERE predicates and RETURN/WITH/ORDER BY items;
	// references from other pattern edges are not counted. Filled by the
	// join-context analyzer pass and read by graph-join inference (spec.md
	// §4.3) to decide whether an edge's endpoint needs its own joined table
	// or can stay folded into the edge's view scan.
	ExternalRefs int
}

// PlanCtx is the mutable side-table the logical planner fills while walking
// the AST, threaded unchanged through every analyzer pass (spec.md §3
// "Lifecycle", §5 "PlanCtx is exclusively owned by the compilation that
// created it").
type PlanCtx struct {
	Schema *catalog.GraphSchema

	Tables map[string]*TableCtx

	// ViewParameterValues holds the caller-supplied parameterized-view
	// bindings (spec.md §6 query-request surface `view_parameters`).
	ViewParameterValues map[string]string

	MaxInferredTypes int
	MaxCTEDepth       int
	MaxHeteroVLPLen   int

	// InOptionalMatch is true while the planner is walking an OPTIONAL
	// MATCH subtree; every alias bound during that window is marked
	// TableCtx.IsOptional (spec.md §9).
	InOptionalMatch bool

	aliasCounter int
}

// NewPlanCtx builds an empty PlanCtx bound to schema with the given caps.
func NewPlanCtx(schema *catalog.GraphSchema, maxInferredTypes, maxCTEDepth, maxHeteroVLPLen int) *PlanCtx {
	return &PlanCtx{
		Schema:              schema,
		Tables:              make(map[string]*TableCtx),
		ViewParameterValues: make(map[string]string),
		MaxInferredTypes:    maxInferredTypes,
		MaxCTEDepth:         maxCTEDepth,
		MaxHeteroVLPLen:     maxHeteroVLPLen,
	}
}

// TableFor returns the TableCtx for alias, creating it if absent.
func (c *PlanCtx) TableFor(alias string) *TableCtx {
	if t, ok := c.Tables[alias]; ok {
		return t
	}
	t := &TableCtx{Alias: alias, Properties: make(map[string]cypher.Expression)}
	c.Tables[alias] = t
	return t
}

// FreshAlias synthesizes a stable internal alias for an anonymous pattern
// element (e.g. unnamed edge `-[:T]->`), deterministic across runs of the
// same query so rendered SQL is byte-stable (spec.md testable property 1).
func (c *PlanCtx) FreshAlias(prefix string) string {
	c.aliasCounter++
	return prefix + "_" + strconv.Itoa(c.aliasCounter)
}
