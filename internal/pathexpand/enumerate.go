// Package pathexpand implements spec.md §4.4 "Path expansion": it takes
// over the GraphRel chains internal/joininfer deliberately leaves untouched
// (variable-length or shortest-path edges) and replaces each with either a
// HomogeneousPath (single type on both ends, a recursive CTE) or a
// HeterogeneousPath (more than one admissible type, a schema-guided DFS
// enumeration of every concrete-type path, combined with UNION ALL).
//
// The heterogeneous enumeration is grounded on original_source's
// multi_type_vlp_expansion.rs (`enumerate_vlp_paths`): depth-first descent
// from each start label, trying every relationship type compatible with
// the current node type at each remaining-hop level, filtering dead ends
// at the base case by end-label membership, and deduplicating identical
// hop sequences reached by more than one generation path.
package pathexpand

import (
	"strings"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
)

// hop is one typed traversal step: PathHop's schema-resolution precursor.
type hop struct {
	relType   string
	fromLabel string
	toLabel   string
	reversed  bool
	schema    *catalog.RelationshipSchema
}

// enumeration is one fully-realized concrete-type path. start is carried
// alongside hops because a zero-hop path (minHops == 0) has no hop to
// recover its starting label from.
type enumeration struct {
	start string
	hops  []hop
}

func (e enumeration) key() string {
	var sb strings.Builder
	sb.WriteString(e.start)
	sb.WriteByte(';')
	for _, h := range e.hops {
		sb.WriteString(h.relType)
		sb.WriteByte('|')
		sb.WriteString(h.fromLabel)
		sb.WriteByte('|')
		sb.WriteString(h.toLabel)
		sb.WriteByte('|')
		if h.reversed {
			sb.WriteByte('R')
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

// enumerateHeterogeneousPaths ports enumerate_vlp_paths /
// enumerate_vlp_paths_undirected into one direction-aware walk: an outgoing
// search alone for a directed left-to-right edge, an incoming search alone
// for `<-`, and both for an undirected `-...-` pattern (equivalent to the
// Rust source's include_incoming flag).
func enumerateHeterogeneousPaths(schema *catalog.GraphSchema, startLabels, relTypes, endLabels []string, minHops, maxHops int, direction cypher.Direction) []enumeration {
	seen := make(map[string]bool)
	var out []enumeration
	for length := minHops; length <= maxHops; length++ {
		for _, start := range startLabels {
			for _, e := range generatePaths(schema, start, relTypes, endLabels, length, nil, direction) {
				e.start = start
				k := e.key()
				if seen[k] {
					continue
				}
				seen[k] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// generatePaths is generate_paths_recursive: extend path_so_far by one hop
// from currentLabel, recursing until remaining reaches zero, at which point
// the path survives only if currentLabel satisfies endLabels.
func generatePaths(schema *catalog.GraphSchema, currentLabel string, relTypes, endLabels []string, remaining int, pathSoFar []hop, direction cypher.Direction) []enumeration {
	if remaining == 0 {
		if !matchesEndLabel(currentLabel, endLabels) {
			return nil
		}
		return []enumeration{{hops: append([]hop{}, pathSoFar...)}}
	}

	var out []enumeration
	if direction != cypher.DirectionIncoming {
		for _, rel := range schema.RelationshipsByEndpoints(relTypes, &currentLabel, nil) {
			for _, toLabel := range expandEndpointLabel(schema, rel.ToLabel, rel.ToLabelValues) {
				next := append(append([]hop{}, pathSoFar...), hop{
					relType: rel.Type, fromLabel: currentLabel, toLabel: toLabel, schema: rel,
				})
				out = append(out, generatePaths(schema, toLabel, relTypes, endLabels, remaining-1, next, direction)...)
			}
		}
	}
	if direction != cypher.DirectionOutgoing {
		for _, rel := range schema.RelationshipsByEndpoints(relTypes, nil, &currentLabel) {
			for _, fromLabel := range expandEndpointLabel(schema, rel.FromLabel, rel.FromLabelValues) {
				next := append(append([]hop{}, pathSoFar...), hop{
					relType: rel.Type, fromLabel: fromLabel, toLabel: currentLabel, reversed: true, schema: rel,
				})
				out = append(out, generatePaths(schema, fromLabel, relTypes, endLabels, remaining-1, next, direction)...)
			}
		}
	}
	return out
}

// expandEndpointLabel realizes schema.expand_node_type: a concrete label
// passes through unchanged; the polymorphic sentinel expands to its
// declared value set, or every catalog label when none was declared.
func expandEndpointLabel(schema *catalog.GraphSchema, label string, declared []string) []string {
	if label != catalog.AnyLabel {
		return []string{label}
	}
	if len(declared) > 0 {
		return declared
	}
	return schema.Labels()
}

func matchesEndLabel(label string, endLabels []string) bool {
	if len(endLabels) == 0 {
		return true
	}
	for _, l := range endLabels {
		if l == label || l == catalog.AnyLabel {
			return true
		}
	}
	return false
}
