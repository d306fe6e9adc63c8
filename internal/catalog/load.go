package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the top-level catalog YAML shape (spec.md §6).
type yamlDocument struct {
	Name        string            `yaml:"name"`
	GraphSchema yamlGraphSchema   `yaml:"graph_schema"`
}

type yamlGraphSchema struct {
	Nodes []yamlNode `yaml:"nodes"`
	Edges []yamlEdge `yaml:"edges"`
}

// yamlIdentifier accepts either a bare string or a list of strings for
// id_column / from_id / to_id / edge_id (spec.md §6).
type yamlIdentifier struct {
	values []string
}

func (y *yamlIdentifier) UnmarshalYAML(value *yaml.Node) error {
	var single string
	if err := value.Decode(&single); err == nil {
		y.values = []string{single}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return fmt.Errorf("identifier must be a string or list of strings: %w", err)
	}
	y.values = list
	return nil
}

type yamlNode struct {
	Label                string            `yaml:"label"`
	Database             string            `yaml:"database"`
	Table                string            `yaml:"table"`
	IDColumn             yamlIdentifier    `yaml:"id_column"`
	PropertyMappings     map[string]string `yaml:"property_mappings"`
	ViewParameters       []string          `yaml:"view_parameters"`
	UseFinal             *bool             `yaml:"use_final"`
	AutoDiscoverColumns  bool              `yaml:"auto_discover_columns"`
	ExcludeColumns       []string          `yaml:"exclude_columns"`
	NamingConvention     string            `yaml:"naming_convention"`
}

type yamlEdge struct {
	Type                string            `yaml:"type"`
	Database            string            `yaml:"database"`
	Table               string            `yaml:"table"`
	FromID              yamlIdentifier    `yaml:"from_id"`
	ToID                yamlIdentifier    `yaml:"to_id"`
	FromNode            string            `yaml:"from_node"`
	ToNode              string            `yaml:"to_node"`
	EdgeID              *yamlIdentifier   `yaml:"edge_id"`
	FromNodeProperties  map[string]string `yaml:"from_node_properties"`
	ToNodeProperties    map[string]string `yaml:"to_node_properties"`
	PropertyMappings    map[string]string `yaml:"property_mappings"`
	Polymorphic         bool              `yaml:"polymorphic"`
	TypeColumn          string            `yaml:"type_column"`
	FromLabelColumn     string            `yaml:"from_label_column"`
	ToLabelColumn       string            `yaml:"to_label_column"`
	FromLabelValues     []string          `yaml:"from_label_values"`
	ToLabelValues       []string          `yaml:"to_label_values"`
	Constraints         []string          `yaml:"constraints"`
	ViewParameters      []string          `yaml:"view_parameters"`
	UseFinal            *bool             `yaml:"use_final"`
	AutoDiscoverColumns bool              `yaml:"auto_discover_columns"`
	ExcludeColumns      []string          `yaml:"exclude_columns"`
	NamingConvention    string            `yaml:"naming_convention"`
}

// LoadResult is the outcome of loading a catalog: the resolved schema plus
// any non-fatal warnings emitted during auto-discovery or engine detection
// (spec.md §7: "the catalog load is the sole exception [to halt-on-first-
// error] and emits one warning per non-critical discovery failure").
type LoadResult struct {
	Schema   *GraphSchema
	Warnings []string
}

// LoadFromFile reads and parses a catalog YAML file from disk.
func LoadFromFile(ctx context.Context, path string, lister ColumnLister, probe EngineProbe) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	return LoadFromBytes(ctx, data, lister, probe)
}

// LoadFromBytes parses a catalog YAML document and validates + resolves it
// into a GraphSchema (spec.md §4.1).
func LoadFromBytes(ctx context.Context, data []byte, lister ColumnLister, probe EngineProbe) (*LoadResult, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parsing YAML: %w", err)
	}
	return build(ctx, &doc, lister, probe)
}

func build(ctx context.Context, doc *yamlDocument, lister ColumnLister, probe EngineProbe) (*LoadResult, error) {
	if len(doc.GraphSchema.Nodes) == 0 {
		return nil, errEmptyNodes
	}

	schema := NewGraphSchema(1, "")
	var warnings []string
	denormPositions := map[string][]denormPosition{} // table -> positions it appears in

	for i := range doc.GraphSchema.Nodes {
		def := &doc.GraphSchema.Nodes[i]
		if len(def.IDColumn.values) == 0 {
			return nil, newSchemaError(ErrInvalidIdentifier, "node %q: id_column must list at least one column", def.Label)
		}
		id, err := NewIdentifier(def.IDColumn.values)
		if err != nil {
			return nil, err
		}
		node := &NodeSchema{
			Label:            def.Label,
			Database:         def.Database,
			Table:            def.Table,
			ID:               id,
			PropertyMappings: map[string]PropertyMapping{},
			ViewParameters:   def.ViewParameters,
			UseFinal:         def.UseFinal,
		}
		for cypherName, col := range def.PropertyMappings {
			node.PropertyMappings[cypherName] = NewColumnMapping(col)
		}

		if def.AutoDiscoverColumns {
			if lister == nil {
				warnings = append(warnings, fmt.Sprintf("node %q: auto_discover_columns set but no ColumnLister configured, skipping", def.Label))
			} else {
				cols, err := lister.ListColumns(ctx, def.Database, def.Table)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("node %q: auto-discovery failed: %v", def.Label, err))
				} else {
					applyAutoDiscovery(node.PropertyMappings, cols, def.ExcludeColumns, def.NamingConvention)
				}
			}
		}

		if probe != nil {
			engine, err := probe.DetectEngine(ctx, def.Database, def.Table)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("node %q: engine detection failed: %v", def.Label, err))
			} else {
				engine, err = ResolveOtherEngineFinalSupport(ctx, probe, def.Database, def.Table, engine)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("node %q: %v", def.Label, err))
				}
				node.Engine = engine
			}
		}

		if err := schema.InsertNode(node); err != nil {
			return nil, err
		}
	}

	for i := range doc.GraphSchema.Edges {
		def := &doc.GraphSchema.Edges[i]
		rel, err := buildRelationship(ctx, def, schema, lister, probe, &warnings)
		if err != nil {
			return nil, err
		}
		if err := schema.InsertRelationship(rel); err != nil {
			return nil, err
		}
		if len(def.FromNodeProperties) > 0 {
			denormPositions[def.FromNode] = append(denormPositions[def.FromNode], denormPosition{table: def.Table, relType: def.Type, fromSide: true})
		}
		if len(def.ToNodeProperties) > 0 {
			denormPositions[def.ToNode] = append(denormPositions[def.ToNode], denormPosition{table: def.Table, relType: def.Type, fromSide: false})
		}
	}

	resolveDenormalizedNodes(schema, denormPositions)

	return &LoadResult{Schema: schema, Warnings: warnings}, nil
}

// validateDenormalizedMetadata enforces spec.md §4.1's validation rule: a
// node label with no physical table of its own needs its properties
// supplied by whichever edge position(s) reference it, and when that same
// label is referenced from both positions, both are required ("if the
// denormalized node is to appear in both positions, both are required").
// Checked per edge, per endpoint, so a label missing only one side's
// property map is rejected regardless of whether the gap is a single
// self-referencing edge or split across separate relationships.
func validateDenormalizedMetadata(def *yamlEdge, schema *GraphSchema) error {
	if def.FromNode != "" && def.FromNode != AnyLabel {
		if _, hasTable := schema.Nodes[def.FromNode]; !hasTable && len(def.FromNodeProperties) == 0 {
			return newSchemaError(ErrDenormalizedMetadataMissing,
				"relationship %q: %q has no node table and is referenced as the from-node here, from_node_properties is required", def.Type, def.FromNode)
		}
	}
	if def.ToNode != "" && def.ToNode != AnyLabel {
		if _, hasTable := schema.Nodes[def.ToNode]; !hasTable && len(def.ToNodeProperties) == 0 {
			return newSchemaError(ErrDenormalizedMetadataMissing,
				"relationship %q: %q has no node table and is referenced as the to-node here, to_node_properties is required", def.Type, def.ToNode)
		}
	}
	return nil
}

type denormPosition struct {
	table    string
	relType  string
	fromSide bool
}

// resolveDenormalizedNodes marks any node label that never got its own
// node-table definition, but is referenced as a denormalized endpoint of one
// or more relationships, per spec.md §3 invariant 3. The node's properties
// are the union of every contributing relationship's endpoint property map.
func resolveDenormalizedNodes(schema *GraphSchema, positions map[string][]denormPosition) {
	for label, pos := range positions {
		if _, exists := schema.Nodes[label]; exists {
			continue
		}
		if len(pos) == 0 {
			continue
		}
		node := &NodeSchema{
			Label:                   label,
			IsDenormalized:          true,
			DenormalizedSourceTable: pos[0].table,
			PropertyMappings:        map[string]PropertyMapping{},
			FromProperties:          map[string]PropertyMapping{},
			ToProperties:            map[string]PropertyMapping{},
		}
		for _, p := range pos {
			rel, ok := findRelByTypeAndTable(schema, p.relType, p.table)
			if !ok {
				continue
			}
			var src map[string]PropertyMapping
			if p.fromSide {
				src = rel.FromNodeProperties
			} else {
				src = rel.ToNodeProperties
			}
			for name, mapping := range src {
				node.PropertyMappings[name] = mapping
				if p.fromSide {
					node.FromProperties[name] = mapping
				} else {
					node.ToProperties[name] = mapping
				}
			}
		}
		schema.Nodes[label] = node
	}
}

func findRelByTypeAndTable(schema *GraphSchema, relType, table string) (*RelationshipSchema, bool) {
	for _, key := range schema.RelTypeIndex[relType] {
		if r, ok := schema.Relationships[key]; ok && r.Table == table {
			return r, true
		}
	}
	return nil, false
}

func buildRelationship(ctx context.Context, def *yamlEdge, schema *GraphSchema, lister ColumnLister, probe EngineProbe, warnings *[]string) (*RelationshipSchema, error) {
	if def.Polymorphic && def.TypeColumn == "" {
		return nil, newSchemaError(ErrPolymorphicMetadataMissing, "relationship %q: polymorphic edges require type_column", def.Type)
	}
	if err := validateDenormalizedMetadata(def, schema); err != nil {
		return nil, err
	}
	if len(def.FromID.values) == 0 {
		return nil, newSchemaError(ErrInvalidIdentifier, "relationship %q: from_id must list at least one column", def.Type)
	}
	if len(def.ToID.values) == 0 {
		return nil, newSchemaError(ErrInvalidIdentifier, "relationship %q: to_id must list at least one column", def.Type)
	}
	fromID, err := NewIdentifier(def.FromID.values)
	if err != nil {
		return nil, err
	}
	toID, err := NewIdentifier(def.ToID.values)
	if err != nil {
		return nil, err
	}

	fromLabel, toLabel := def.FromNode, def.ToNode
	if fromLabel == "" {
		fromLabel = AnyLabel
	}
	if toLabel == "" {
		toLabel = AnyLabel
	}

	rel := &RelationshipSchema{
		Type:             def.Type,
		Database:         def.Database,
		Table:            def.Table,
		FromLabel:        fromLabel,
		ToLabel:          toLabel,
		FromID:           fromID,
		ToID:             toID,
		PropertyMappings: map[string]PropertyMapping{},
		ViewParameters:   def.ViewParameters,
		UseFinal:         def.UseFinal,
		TypeColumn:       def.TypeColumn,
		FromLabelColumn:  def.FromLabelColumn,
		ToLabelColumn:    def.ToLabelColumn,
		FromLabelValues:  def.FromLabelValues,
		ToLabelValues:    def.ToLabelValues,
		Constraints:      def.Constraints,
	}
	if def.EdgeID != nil && len(def.EdgeID.values) > 0 {
		edgeID, err := NewIdentifier(def.EdgeID.values)
		if err != nil {
			return nil, err
		}
		rel.EdgeID = edgeID
	}
	for cypherName, col := range def.PropertyMappings {
		rel.PropertyMappings[cypherName] = NewColumnMapping(col)
	}
	if len(def.FromNodeProperties) > 0 {
		rel.FromNodeProperties = map[string]PropertyMapping{}
		for cypherName, col := range def.FromNodeProperties {
			rel.FromNodeProperties[cypherName] = NewColumnMapping(col)
		}
	}
	if len(def.ToNodeProperties) > 0 {
		rel.ToNodeProperties = map[string]PropertyMapping{}
		for cypherName, col := range def.ToNodeProperties {
			rel.ToNodeProperties[cypherName] = NewColumnMapping(col)
		}
	}

	if def.AutoDiscoverColumns {
		if lister == nil {
			*warnings = append(*warnings, fmt.Sprintf("relationship %q: auto_discover_columns set but no ColumnLister configured, skipping", def.Type))
		} else {
			cols, err := lister.ListColumns(ctx, def.Database, def.Table)
			if err != nil {
				*warnings = append(*warnings, fmt.Sprintf("relationship %q: auto-discovery failed: %v", def.Type, err))
			} else {
				applyAutoDiscovery(rel.PropertyMappings, cols, def.ExcludeColumns, def.NamingConvention)
			}
		}
	}

	if probe != nil {
		engine, err := probe.DetectEngine(ctx, def.Database, def.Table)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("relationship %q: engine detection failed: %v", def.Type, err))
		} else {
			engine, err = ResolveOtherEngineFinalSupport(ctx, probe, def.Database, def.Table, engine)
			if err != nil {
				*warnings = append(*warnings, fmt.Sprintf("relationship %q: %v", def.Type, err))
			}
			rel.Engine = engine
		}
	}

	return rel, nil
}

// applyAutoDiscovery synthesizes identity property mappings for every
// discovered column not in exclude, without overriding manual mappings
// already present (spec.md §4.1: "manual mappings override discovery
// entries on conflict").
func applyAutoDiscovery(mappings map[string]PropertyMapping, columns, exclude []string, namingConvention string) {
	excluded := map[string]bool{}
	for _, c := range exclude {
		excluded[c] = true
	}
	existingColumns := map[string]bool{}
	for _, m := range mappings {
		if m.Kind == PropertyColumn {
			existingColumns[m.Column] = true
		}
	}
	for _, col := range columns {
		if excluded[col] || existingColumns[col] {
			continue
		}
		cypherName := normalizeNamingConvention(col, namingConvention)
		if _, exists := mappings[cypherName]; exists {
			continue
		}
		mappings[cypherName] = NewColumnMapping(col)
	}
}
