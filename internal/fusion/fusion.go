package fusion

import (
	"fmt"
	"math"
	"sort"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// Default scoring parameters.
const (
	DefaultExactWeight    = 1.0
	DefaultLexicalWeight  = 0.9
	DefaultSemanticWeight = 0.8
	DefaultSymbolWeight   = 0.7

	// DefaultMinSemanticSimilarity drops weak semantic neighbors. Vector
	// search always returns the nearest candidates, near or not; below
	// this similarity they are noise.
	DefaultMinSemanticSimilarity = 0.35

	// DefaultHighSimilarityKnee is where the convex boost kicks in. Very
	// strong semantic matches are pushed further up so they are not
	// drowned out by accumulated lexical contributions.
	DefaultHighSimilarityKnee = 0.85

	// DefaultBoostFactor scales the quadratic boost above the knee.
	DefaultBoostFactor = 2.0

	// DefaultLexicalCap normalizes unbounded BM25 scores into [0, 1].
	DefaultLexicalCap = 25.0

	DefaultMaxResults = 10
)

// Config contains fusion parameters. Weights are relative importance per
// source; the zero value of any field falls back to its default.
type Config struct {
	ExactWeight    float64
	LexicalWeight  float64
	SemanticWeight float64
	SymbolWeight   float64

	MinSemanticSimilarity float64
	HighSimilarityKnee    float64
	BoostFactor           float64
	LexicalCap            float64
	MaxResults            int
}

// DefaultConfig returns the standard fusion parameters.
func DefaultConfig() Config {
	return Config{
		ExactWeight:           DefaultExactWeight,
		LexicalWeight:         DefaultLexicalWeight,
		SemanticWeight:        DefaultSemanticWeight,
		SymbolWeight:          DefaultSymbolWeight,
		MinSemanticSimilarity: DefaultMinSemanticSimilarity,
		HighSimilarityKnee:    DefaultHighSimilarityKnee,
		BoostFactor:           DefaultBoostFactor,
		LexicalCap:            DefaultLexicalCap,
		MaxResults:            DefaultMaxResults,
	}
}

// Candidate is one raw result from a single retrieval source. Score is on
// the source's native scale: 1.0 for exact matches, unbounded BM25 for
// lexical, similarity in [0, 1] for semantic, and [0, 1] for symbol.
type Candidate struct {
	FilePath  string
	StartLine int
	EndLine   int
	Score     float64
	Snippet   string
}

// Inputs carries the per-source candidate lists into one fusion pass.
type Inputs struct {
	Exact    []Candidate
	Lexical  []Candidate
	Semantic []Candidate
	Symbol   []Candidate
}

// Engine merges per-source candidates into a single ranked list.
type Engine struct {
	cfg Config
}

// New creates an Engine with default parameters.
func New() *Engine {
	e, _ := NewWithConfig(DefaultConfig())
	return e
}

// NewWithConfig creates an Engine, validating parameters at construction.
func NewWithConfig(cfg Config) (*Engine, error) {
	if cfg.ExactWeight < 0 || cfg.LexicalWeight < 0 || cfg.SemanticWeight < 0 || cfg.SymbolWeight < 0 {
		return nil, fmt.Errorf("%w: source weights must be non-negative", types.ErrInvalidConfig)
	}
	if cfg.ExactWeight+cfg.LexicalWeight+cfg.SemanticWeight+cfg.SymbolWeight <= 0 {
		return nil, fmt.Errorf("%w: at least one source weight must be positive", types.ErrInvalidConfig)
	}
	if cfg.MinSemanticSimilarity < 0 || cfg.MinSemanticSimilarity > 1 {
		return nil, fmt.Errorf("%w: semantic similarity threshold must be in [0,1], got %g",
			types.ErrInvalidConfig, cfg.MinSemanticSimilarity)
	}
	if cfg.HighSimilarityKnee < 0 || cfg.HighSimilarityKnee > 1 {
		return nil, fmt.Errorf("%w: high-similarity knee must be in [0,1], got %g",
			types.ErrInvalidConfig, cfg.HighSimilarityKnee)
	}
	if cfg.LexicalCap < 0 {
		return nil, fmt.Errorf("%w: lexical cap must be non-negative, got %g",
			types.ErrInvalidConfig, cfg.LexicalCap)
	}
	if cfg.LexicalCap == 0 {
		cfg.LexicalCap = DefaultLexicalCap
	}
	if cfg.BoostFactor == 0 {
		cfg.BoostFactor = DefaultBoostFactor
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	return &Engine{cfg: cfg}, nil
}

// DistanceToSimilarity converts an L2 distance between unit vectors into
// cosine similarity via sim = 1 - d^2/2, clamped to [0, 1].
func DistanceToSimilarity(distance float64) float64 {
	return clamp01(1 - distance*distance/2)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Fuse merges the per-source candidates into one ranked result list.
//
// Each candidate is normalized to [0, 1] on its source's terms, weighted,
// and accumulated per (file, line range). A chunk found by several sources
// keeps every provenance flag and the sum of its weighted contributions.
// Ordering is deterministic: descending score, then source priority
// (exact, lexical, semantic, symbol), then file path, then start line.
func (e *Engine) Fuse(in Inputs) []types.FusedResult {
	type key struct {
		file       string
		start, end int
	}
	merged := make(map[key]*types.FusedResult)

	accumulate := func(c Candidate, norm float64, weight float64, match types.MatchType) {
		if weight == 0 {
			return
		}
		k := key{file: c.FilePath, start: c.StartLine, end: c.EndLine}
		r, ok := merged[k]
		if !ok {
			r = &types.FusedResult{
				FilePath:  c.FilePath,
				StartLine: c.StartLine,
				EndLine:   c.EndLine,
			}
			merged[k] = r
		}
		r.Score += norm * weight
		r.Match |= match
		if r.Snippet == "" {
			r.Snippet = c.Snippet
		}
	}

	for _, c := range in.Exact {
		accumulate(c, clamp01(c.Score), e.cfg.ExactWeight, types.MatchExact)
	}
	for _, c := range in.Lexical {
		accumulate(c, clamp01(c.Score/e.cfg.LexicalCap), e.cfg.LexicalWeight, types.MatchLexical)
	}
	for _, c := range in.Semantic {
		sim := clamp01(c.Score)
		if sim < e.cfg.MinSemanticSimilarity {
			continue
		}
		accumulate(c, e.boost(sim), e.cfg.SemanticWeight, types.MatchSemantic)
	}
	for _, c := range in.Symbol {
		accumulate(c, clamp01(c.Score), e.cfg.SymbolWeight, types.MatchSymbol)
	}

	results := make([]types.FusedResult, 0, len(merged))
	for _, r := range merged {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Match.PriorityRank() != b.Match.PriorityRank() {
			return a.Match.PriorityRank() < b.Match.PriorityRank()
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.StartLine < b.StartLine
	})

	if len(results) > e.cfg.MaxResults {
		results = results[:e.cfg.MaxResults]
	}
	return results
}

// boost applies the convex high-similarity boost: above the knee the score
// grows quadratically with the margin, clamped back into [0, 1].
func (e *Engine) boost(sim float64) float64 {
	if sim <= e.cfg.HighSimilarityKnee {
		return sim
	}
	margin := sim - e.cfg.HighSimilarityKnee
	return clamp01(sim + margin*margin*e.cfg.BoostFactor)
}
