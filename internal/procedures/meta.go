// Package procedures implements the standalone CALL procedures of spec.md
// §4.6 (db.labels, db.relationshipTypes, db.propertyKeys,
// db.schema.nodeTypeProperties, db.schema.relTypeProperties,
// dbms.components, apoc.meta.schema), grounded on the teacher's
// apoc/meta catalog-introspection shape but reading the real
// catalog.GraphSchema instead of returning placeholders.
package procedures

import (
	"sort"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
)

// DBLabels implements `CALL db.labels()`.
func DBLabels(schema *catalog.GraphSchema) []string {
	labels := schema.Labels()
	sort.Strings(labels)
	return labels
}

// DBRelationshipTypes implements `CALL db.relationshipTypes()`.
func DBRelationshipTypes(schema *catalog.GraphSchema) []string {
	types := schema.RelationshipTypes()
	sort.Strings(types)
	return types
}

// DBPropertyKeys implements `CALL db.propertyKeys()`.
func DBPropertyKeys(schema *catalog.GraphSchema) []string {
	keys := schema.PropertyKeys()
	sort.Strings(keys)
	return keys
}

// NodeTypeProperty is one row of `CALL db.schema.nodeTypeProperties()`.
type NodeTypeProperty struct {
	Label        string
	PropertyName string
	Mandatory    bool
}

// DBSchemaNodeTypeProperties implements `CALL db.schema.nodeTypeProperties()`.
func DBSchemaNodeTypeProperties(schema *catalog.GraphSchema) []NodeTypeProperty {
	var out []NodeTypeProperty
	labels := schema.Labels()
	sort.Strings(labels)
	for _, label := range labels {
		node, err := schema.GetNodeSchema(label)
		if err != nil {
			continue
		}
		names := propertyNames(node.PropertyMappings)
		for _, name := range names {
			out = append(out, NodeTypeProperty{Label: label, PropertyName: name, Mandatory: !node.IsDenormalized})
		}
	}
	return out
}

// RelTypeProperty is one row of `CALL db.schema.relTypeProperties()`.
type RelTypeProperty struct {
	RelType      string
	PropertyName string
}

// DBSchemaRelTypeProperties implements `CALL db.schema.relTypeProperties()`.
func DBSchemaRelTypeProperties(schema *catalog.GraphSchema) []RelTypeProperty {
	var out []RelTypeProperty
	for _, rel := range schema.AllRelationships() {
		names := propertyNames(rel.PropertyMappings)
		for _, name := range names {
			out = append(out, RelTypeProperty{RelType: rel.Type, PropertyName: name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RelType != out[j].RelType {
			return out[i].RelType < out[j].RelType
		}
		return out[i].PropertyName < out[j].PropertyName
	})
	return out
}

// DBMSComponent is one row of `CALL dbms.components()`.
type DBMSComponent struct {
	Name        string
	Versions    []string
	Edition     string
}

// DBMSComponents implements `CALL dbms.components()`, reporting the
// compiler itself as a single pseudo-component.
func DBMSComponents(version string) []DBMSComponent {
	return []DBMSComponent{{Name: "cyphergraph", Versions: []string{version}, Edition: "community"}}
}

// ApocMetaSchema implements `CALL apoc.meta.schema()`: a single JSON-object
// record keyed by label/type, each value describing its properties and
// (for relationships) endpoint labels.
func ApocMetaSchema(schema *catalog.GraphSchema) map[string]interface{} {
	result := make(map[string]interface{})

	for _, label := range schema.Labels() {
		node, err := schema.GetNodeSchema(label)
		if err != nil {
			continue
		}
		result[label] = map[string]interface{}{
			"type":       "node",
			"count":      -1,
			"properties": propertyTypeMap(node.PropertyMappings),
		}
	}

	for _, rel := range schema.AllRelationships() {
		result[rel.Type] = map[string]interface{}{
			"type":       "relationship",
			"count":      -1,
			"properties": propertyTypeMap(rel.PropertyMappings),
			"from":       rel.FromLabel,
			"to":         rel.ToLabel,
		}
	}

	return result
}

// ApocMetaSchemaRow is one row of the pre-unwound `apoc.meta.schema()`
// variant, for consumers that can only index flat result sets rather than
// nested maps (spec.md §4.6).
type ApocMetaSchemaRow struct {
	Label        string
	ElementType  string // "node" or "relationship"
	PropertyName string
}

// ApocMetaSchemaUnwound implements the pre-unwound variant of
// apoc.meta.schema().
func ApocMetaSchemaUnwound(schema *catalog.GraphSchema) []ApocMetaSchemaRow {
	var out []ApocMetaSchemaRow
	for _, label := range schema.Labels() {
		node, err := schema.GetNodeSchema(label)
		if err != nil {
			continue
		}
		for _, name := range propertyNames(node.PropertyMappings) {
			out = append(out, ApocMetaSchemaRow{Label: label, ElementType: "node", PropertyName: name})
		}
	}
	for _, rel := range schema.AllRelationships() {
		for _, name := range propertyNames(rel.PropertyMappings) {
			out = append(out, ApocMetaSchemaRow{Label: rel.Type, ElementType: "relationship", PropertyName: name})
		}
	}
	return out
}

func propertyNames(mappings map[string]catalog.PropertyMapping) []string {
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func propertyTypeMap(mappings map[string]catalog.PropertyMapping) map[string]string {
	out := make(map[string]string, len(mappings))
	for name, mapping := range mappings {
		if mapping.Kind == catalog.PropertyExpression {
			out[name] = "expression"
		} else {
			out[name] = "column"
		}
	}
	return out
}
