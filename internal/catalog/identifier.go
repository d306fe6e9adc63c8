// Package catalog models the graph schema catalog: the mapping from graph
// concepts (labels, relationship types, properties) to physical OLAP tables
// and columns, loaded from a YAML document (SPEC_FULL.md §4).
package catalog

import "strings"

// Identifier is a node or relationship-endpoint id, either a single column
// or a composite (multi-column) tuple. Composite identifiers are compared
// and rendered as SQL tuple expressions (spec.md invariant 5, testable
// property 3).
type Identifier interface {
	// Columns returns the identifier's column names in declared order.
	Columns() []string
	// SQLTuple renders a qualified reference for use in SELECT/JOIN clauses:
	// "alias.col" for a single column, "(alias.c1, alias.c2)" for composite.
	SQLTuple(alias string) string
	// IsComposite reports whether this identifier spans more than one column.
	IsComposite() bool
}

// SingleIdentifier is a one-column identifier.
type SingleIdentifier struct {
	Column string
}

func (s SingleIdentifier) Columns() []string { return []string{s.Column} }

func (s SingleIdentifier) SQLTuple(alias string) string {
	return alias + "." + s.Column
}

func (s SingleIdentifier) IsComposite() bool { return false }

// CompositeIdentifier is a multi-column identifier compared element-wise.
type CompositeIdentifier struct {
	CompositeColumns []string
}

func (c CompositeIdentifier) Columns() []string { return c.CompositeColumns }

func (c CompositeIdentifier) SQLTuple(alias string) string {
	parts := make([]string, len(c.CompositeColumns))
	for i, col := range c.CompositeColumns {
		parts[i] = alias + "." + col
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (c CompositeIdentifier) IsComposite() bool { return true }

// NewIdentifier builds an Identifier from the YAML `id_column` shape, which
// is either a bare string or a list of strings (spec.md §6).
func NewIdentifier(columns []string) (Identifier, error) {
	if len(columns) == 0 {
		return nil, errEmptyIdentifier
	}
	if len(columns) == 1 {
		return SingleIdentifier{Column: columns[0]}, nil
	}
	return CompositeIdentifier{CompositeColumns: columns}, nil
}

// ToStringExpr renders the SQL expression used to stringify an identifier
// value for projection as `<var>_id` (spec.md §4.5): a plain column cast for
// single identifiers, `toString(tuple(c1, c2, ...))` for composite ones
// (spec.md §4.4, testable property 3).
func ToStringExpr(id Identifier, alias string) string {
	if !id.IsComposite() {
		cols := id.Columns()
		return "toString(" + alias + "." + cols[0] + ")"
	}
	parts := make([]string, 0, len(id.Columns()))
	for _, col := range id.Columns() {
		parts = append(parts, alias+"."+col)
	}
	return "toString(tuple(" + strings.Join(parts, ", ") + "))"
}
