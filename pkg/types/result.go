package types

import "strings"

// MatchType records which retrieval sources contributed to a result. It is a
// bit set so a result matched by several sources keeps full provenance.
type MatchType uint8

const (
	MatchExact MatchType = 1 << iota
	MatchLexical
	MatchSemantic
	MatchSymbol
)

// matchPriority orders sources for tie-breaking: exact > lexical > semantic > symbol.
var matchPriority = []struct {
	flag MatchType
	name string
}{
	{MatchExact, "exact"},
	{MatchLexical, "lexical"},
	{MatchSemantic, "semantic"},
	{MatchSymbol, "symbol"},
}

// Has reports whether the given source contributed.
func (m MatchType) Has(flag MatchType) bool {
	return m&flag != 0
}

// Primary returns the highest-priority contributing source.
func (m MatchType) Primary() MatchType {
	for _, p := range matchPriority {
		if m.Has(p.flag) {
			return p.flag
		}
	}
	return 0
}

// PriorityRank returns the ordinal of the primary source, lower is stronger.
// Used as a deterministic tie-break when fused scores are equal.
func (m MatchType) PriorityRank() int {
	for i, p := range matchPriority {
		if m.Has(p.flag) {
			return i
		}
	}
	return len(matchPriority)
}

// String renders the provenance set, e.g. "exact+lexical".
func (m MatchType) String() string {
	var parts []string
	for _, p := range matchPriority {
		if m.Has(p.flag) {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// FusedResult is one entry of the final ranked list a query produces. It is
// constructed fresh per query and never persisted.
type FusedResult struct {
	FilePath  string
	StartLine int
	EndLine   int
	Score     float64
	Match     MatchType
	Snippet   string
}

// SymbolMatch is a symbol-source candidate prior to fusion.
type SymbolMatch struct {
	FilePath string
	Name     string
	Kind     SymbolKind
	Line     int
	Score    float64
}
