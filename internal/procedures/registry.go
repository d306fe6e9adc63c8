package procedures

import (
	"fmt"
	"strings"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
)

// Handler executes one standalone CALL procedure against the current
// schema and returns its result rows pre-shaped for YIELD projection.
type Handler func(schema *catalog.GraphSchema) (interface{}, error)

// Registry dispatches a parsed CALL clause's (namespace, name) to its
// Handler, mirroring the teacher's apoc/registry dispatch-table pattern but
// scoped to the fixed procedure set of spec.md §4.6 rather than a dynamic
// plugin system.
type Registry struct {
	handlers map[string]Handler
	version  string
}

// NewRegistry builds the registry with every procedure of spec.md §4.6
// pre-registered.
func NewRegistry(version string) *Registry {
	r := &Registry{handlers: make(map[string]Handler), version: version}

	r.register("db", "labels", func(schema *catalog.GraphSchema) (interface{}, error) {
		return DBLabels(schema), nil
	})
	r.register("db", "relationshipTypes", func(schema *catalog.GraphSchema) (interface{}, error) {
		return DBRelationshipTypes(schema), nil
	})
	r.register("db", "propertyKeys", func(schema *catalog.GraphSchema) (interface{}, error) {
		return DBPropertyKeys(schema), nil
	})
	r.register("db.schema", "nodeTypeProperties", func(schema *catalog.GraphSchema) (interface{}, error) {
		return DBSchemaNodeTypeProperties(schema), nil
	})
	r.register("db.schema", "relTypeProperties", func(schema *catalog.GraphSchema) (interface{}, error) {
		return DBSchemaRelTypeProperties(schema), nil
	})
	r.register("dbms", "components", func(schema *catalog.GraphSchema) (interface{}, error) {
		return DBMSComponents(r.version), nil
	})
	r.register("apoc.meta", "schema", func(schema *catalog.GraphSchema) (interface{}, error) {
		return ApocMetaSchema(schema), nil
	})

	return r
}

func (r *Registry) register(namespace, name string, h Handler) {
	r.handlers[key(namespace, name)] = h
}

// Call dispatches to the procedure named by namespace parts joined with
// "." plus a bare name, e.g. Call([]string{"db","schema"}, "relTypeProperties", schema).
func (r *Registry) Call(namespace []string, name string, schema *catalog.GraphSchema) (interface{}, error) {
	h, ok := r.handlers[key(strings.Join(namespace, "."), name)]
	if !ok {
		return nil, fmt.Errorf("procedures: unknown procedure %s", fullName(namespace, name))
	}
	return h(schema)
}

// Known reports whether a (namespace, name) pair is registered, used by the
// analyzer to reject unknown procedures before execution.
func (r *Registry) Known(namespace []string, name string) bool {
	_, ok := r.handlers[key(strings.Join(namespace, "."), name)]
	return ok
}

func key(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func fullName(namespace []string, name string) string {
	if len(namespace) == 0 {
		return name
	}
	return strings.Join(namespace, ".") + "." + name
}
