package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// EngineKind classifies a physical table's OLAP storage engine, determining
// whether FINAL is required for correct reads (spec.md §4.1, invariant 7).
// Grounded on original_source's engine_detection.rs classification table.
type EngineKind int

const (
	EngineMergeTree EngineKind = iota
	EngineReplacingMergeTree
	EngineCollapsingMergeTree
	EngineVersionedCollapsingMergeTree
	EngineCoalescingMergeTree
	EngineAggregatingMergeTree
	EngineSummingMergeTree
	EngineOther
)

// EngineInfo captures a detected engine plus any engine-specific parameters.
type EngineInfo struct {
	Kind            EngineKind
	Name            string   // raw engine name as detected, set for every kind
	VersionColumn   string   // ReplacingMergeTree / VersionedCollapsingMergeTree
	SignColumn      string   // CollapsingMergeTree / VersionedCollapsingMergeTree
	SumColumns      []string // SummingMergeTree
	otherSupportsFinal *bool // set by a probe query for EngineOther
}

// RequiresFinalForCorrectness reports whether FINAL must be used to get
// correct results (deduplicating/collapsing engines; spec.md invariant 7).
func (e EngineInfo) RequiresFinalForCorrectness() bool {
	switch e.Kind {
	case EngineReplacingMergeTree, EngineCollapsingMergeTree, EngineVersionedCollapsingMergeTree, EngineCoalescingMergeTree:
		return true
	default:
		return false
	}
}

// SupportsFinal reports whether the engine accepts FINAL at all.
func (e EngineInfo) SupportsFinal() bool {
	switch e.Kind {
	case EngineReplacingMergeTree, EngineCollapsingMergeTree, EngineVersionedCollapsingMergeTree,
		EngineCoalescingMergeTree, EngineAggregatingMergeTree, EngineSummingMergeTree:
		return true
	case EngineOther:
		return e.otherSupportsFinal != nil && *e.otherSupportsFinal
	default:
		return false
	}
}

// ShouldUseFinal resolves the should_use_final() rule of spec.md §3
// invariant 7: an explicit per-schema override always wins; otherwise it
// falls back to the engine-class default.
func ShouldUseFinal(engine EngineInfo, override *bool) bool {
	if override != nil {
		return *override
	}
	return engine.RequiresFinalForCorrectness()
}

var engineSpecRe = regexp.MustCompile(`\(([^)]*)\)`)

// ParseEngineSpec classifies `(engine_name, engine_full)` as queried from the
// OLAP's system tables into an EngineKind (spec.md §4.1).
func ParseEngineSpec(engineName, engineFull string) EngineInfo {
	args := engineSpecArgs(engineFull)
	switch {
	case engineName == "MergeTree":
		return EngineInfo{Kind: EngineMergeTree, Name: engineName}
	case engineName == "ReplacingMergeTree":
		info := EngineInfo{Kind: EngineReplacingMergeTree, Name: engineName}
		if len(args) > 0 {
			info.VersionColumn = args[0]
		}
		return info
	case engineName == "CollapsingMergeTree":
		info := EngineInfo{Kind: EngineCollapsingMergeTree, Name: engineName}
		if len(args) > 0 {
			info.SignColumn = args[0]
		}
		return info
	case engineName == "VersionedCollapsingMergeTree":
		info := EngineInfo{Kind: EngineVersionedCollapsingMergeTree, Name: engineName}
		if len(args) > 0 {
			info.SignColumn = args[0]
		}
		if len(args) > 1 {
			info.VersionColumn = args[1]
		}
		return info
	case engineName == "CoalescingMergeTree":
		return EngineInfo{Kind: EngineCoalescingMergeTree, Name: engineName}
	case engineName == "AggregatingMergeTree":
		return EngineInfo{Kind: EngineAggregatingMergeTree, Name: engineName}
	case engineName == "SummingMergeTree":
		return EngineInfo{Kind: EngineSummingMergeTree, Name: engineName, SumColumns: args}
	default:
		return EngineInfo{Kind: EngineOther, Name: engineName}
	}
}

func engineSpecArgs(engineFull string) []string {
	m := engineSpecRe.FindStringSubmatch(engineFull)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return nil
	}
	parts := strings.Split(m[1], ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// ColumnLister is the sole OLAP collaborator used for auto-discovery of a
// table's columns (spec.md §4.1).
type ColumnLister interface {
	ListColumns(ctx context.Context, database, table string) ([]string, error)
}

// EngineProbe is the sole OLAP collaborator used for engine detection,
// including the `Other` engine FINAL-support probe query.
type EngineProbe interface {
	DetectEngine(ctx context.Context, database, table string) (EngineInfo, error)
	ProbeFinalSupport(ctx context.Context, database, table string) (bool, error)
}

// ResolveOtherEngineFinalSupport runs the `Other` engine probe
// (`SELECT * FROM t FINAL LIMIT 0`) and records the result on the EngineInfo,
// per spec.md §4.1.
func ResolveOtherEngineFinalSupport(ctx context.Context, probe EngineProbe, db, table string, info EngineInfo) (EngineInfo, error) {
	if info.Kind != EngineOther {
		return info, nil
	}
	ok, err := probe.ProbeFinalSupport(ctx, db, table)
	if err != nil {
		return info, fmt.Errorf("probing FINAL support for %s.%s: %w", db, table, err)
	}
	info.otherSupportsFinal = &ok
	return info, nil
}
