package sqlemit

// BoundParameter is one placeholder bound by a Binder, in the order its
// placeholder appears in the emitted SQL text. A named reference (a Cypher
// `$param`) carries Name with Value left nil, since its value comes from
// the caller's query parameters at execution time. An inline literal (the
// `7` in `WHERE u.user_id = 7`) carries an empty Name and the literal's own
// Value, already known at compile time.
type BoundParameter struct {
	Name  string
	Value interface{}
}

// Binder routes every value that would otherwise be interpolated into the
// SQL text — a named query parameter or an inline literal — through a
// placeholder token instead (spec.md §4.5 emission contract: "no string
// interpolation of user values"; spec.md S1: "outer SELECT with literal 7
// bound as parameter"). Only catalog-declared constants and column/alias
// names, which are never user input, are interpolated directly by the rest
// of this package.
type Binder struct {
	order []BoundParameter
}

// NewBinder returns an empty Binder.
func NewBinder() *Binder {
	return &Binder{}
}

// Bind records a reference to the named query parameter and returns the
// positional placeholder to emit in its place.
func (b *Binder) Bind(name string) string {
	b.order = append(b.order, BoundParameter{Name: name})
	return "?"
}

// BindLiteral records an inline literal value and returns the positional
// placeholder to emit in its place, so the literal never appears in the SQL
// text itself.
func (b *Binder) BindLiteral(value interface{}) string {
	b.order = append(b.order, BoundParameter{Value: value})
	return "?"
}

// Parameters returns the bound parameters in the order their placeholders
// appear in the emitted SQL text.
func (b *Binder) Parameters() []BoundParameter {
	return b.order
}
