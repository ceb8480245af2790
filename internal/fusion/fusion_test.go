package fusion

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

func TestNewWithConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative weight", func(c *Config) { c.LexicalWeight = -0.1 }},
		{"all weights zero", func(c *Config) {
			c.ExactWeight, c.LexicalWeight, c.SemanticWeight, c.SymbolWeight = 0, 0, 0, 0
		}},
		{"threshold above one", func(c *Config) { c.MinSemanticSimilarity = 1.5 }},
		{"negative knee", func(c *Config) { c.HighSimilarityKnee = -0.2 }},
		{"negative lexical cap", func(c *Config) { c.LexicalCap = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewWithConfig(cfg)
			assert.ErrorIs(t, err, types.ErrInvalidConfig)
		})
	}

	e, err := NewWithConfig(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, e)
}

func TestDistanceToSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, DistanceToSimilarity(0), 1e-9)
	assert.InDelta(t, 0.875, DistanceToSimilarity(0.5), 1e-9)
	// Orthogonal unit vectors sit at distance sqrt(2).
	assert.InDelta(t, 0.0, DistanceToSimilarity(math.Sqrt2), 1e-9)
	// Opposite vectors clamp to zero instead of going negative.
	assert.Equal(t, 0.0, DistanceToSimilarity(2))
}

func TestFuse_EmptyInputs(t *testing.T) {
	assert.Empty(t, New().Fuse(Inputs{}))
}

func TestFuse_SemanticThreshold(t *testing.T) {
	e := New()

	results := e.Fuse(Inputs{
		Semantic: []Candidate{
			{FilePath: "strong.go", StartLine: 0, EndLine: 5, Score: 0.6},
			{FilePath: "weak.go", StartLine: 0, EndLine: 5, Score: 0.2},
		},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "strong.go", results[0].FilePath)
}

func TestFuse_CombinesProvenance(t *testing.T) {
	e := New()

	results := e.Fuse(Inputs{
		Lexical: []Candidate{
			{FilePath: "a.go", StartLine: 10, EndLine: 20, Score: 10},
			{FilePath: "b.go", StartLine: 0, EndLine: 3, Score: 10},
		},
		Semantic: []Candidate{
			{FilePath: "a.go", StartLine: 10, EndLine: 20, Score: 0.7},
		},
	})

	require.Len(t, results, 2)

	// The doubly-found chunk carries both flags and the summed score.
	top := results[0]
	assert.Equal(t, "a.go", top.FilePath)
	assert.True(t, top.Match.Has(types.MatchLexical))
	assert.True(t, top.Match.Has(types.MatchSemantic))
	expected := (10.0/DefaultLexicalCap)*DefaultLexicalWeight + 0.7*DefaultSemanticWeight
	assert.InDelta(t, expected, top.Score, 1e-9)

	assert.Equal(t, "b.go", results[1].FilePath)
	assert.False(t, results[1].Match.Has(types.MatchSemantic))
}

func TestFuse_LexicalCap(t *testing.T) {
	e := New()

	results := e.Fuse(Inputs{
		Lexical: []Candidate{
			{FilePath: "huge.go", StartLine: 0, EndLine: 1, Score: 500},
			{FilePath: "atcap.go", StartLine: 0, EndLine: 1, Score: DefaultLexicalCap},
		},
	})

	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-9)
	assert.InDelta(t, DefaultLexicalWeight, results[0].Score, 1e-9)
}

func TestFuse_HighSimilarityBoost(t *testing.T) {
	e := New()

	results := e.Fuse(Inputs{
		Semantic: []Candidate{
			{FilePath: "near.go", StartLine: 0, EndLine: 1, Score: 0.95},
			{FilePath: "mid.go", StartLine: 0, EndLine: 1, Score: 0.84},
		},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "near.go", results[0].FilePath)

	// Above the knee the contribution exceeds the raw weighted similarity.
	assert.Greater(t, results[0].Score, 0.95*DefaultSemanticWeight)
	// Below the knee it is exactly the raw weighted similarity.
	assert.InDelta(t, 0.84*DefaultSemanticWeight, results[1].Score, 1e-9)
	// The boost never pushes the normalized score past 1.0.
	assert.LessOrEqual(t, results[0].Score, DefaultSemanticWeight)
}

func TestFuse_TieBreakBySourcePriority(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExactWeight = 0.5
	cfg.SymbolWeight = 0.5
	e, err := NewWithConfig(cfg)
	require.NoError(t, err)

	results := e.Fuse(Inputs{
		Exact:  []Candidate{{FilePath: "zzz.go", StartLine: 0, EndLine: 1, Score: 1.0}},
		Symbol: []Candidate{{FilePath: "aaa.go", StartLine: 0, EndLine: 1, Score: 1.0}},
	})

	require.Len(t, results, 2)
	// Equal scores: the exact match wins despite the later file path.
	assert.Equal(t, "zzz.go", results[0].FilePath)
	assert.Equal(t, types.MatchExact, results[0].Match)
}

func TestFuse_TieBreakByFilePath(t *testing.T) {
	e := New()

	results := e.Fuse(Inputs{
		Exact: []Candidate{
			{FilePath: "b.go", StartLine: 0, EndLine: 1, Score: 1.0},
			{FilePath: "a.go", StartLine: 0, EndLine: 1, Score: 1.0},
		},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "a.go", results[0].FilePath)
	assert.Equal(t, "b.go", results[1].FilePath)
}

func TestFuse_MaxResults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxResults = 3
	e, err := NewWithConfig(cfg)
	require.NoError(t, err)

	var lexical []Candidate
	for i := 0; i < 10; i++ {
		lexical = append(lexical, Candidate{
			FilePath:  fmt.Sprintf("f%d.go", i),
			StartLine: 0, EndLine: 1,
			Score: float64(10 - i),
		})
	}

	results := e.Fuse(Inputs{Lexical: lexical})
	require.Len(t, results, 3)
	assert.Equal(t, "f0.go", results[0].FilePath)
}

func TestFuse_DisabledSourceIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SymbolWeight = 0
	e, err := NewWithConfig(cfg)
	require.NoError(t, err)

	results := e.Fuse(Inputs{
		Symbol:  []Candidate{{FilePath: "sym.go", StartLine: 0, EndLine: 1, Score: 1.0}},
		Lexical: []Candidate{{FilePath: "lex.go", StartLine: 0, EndLine: 1, Score: 5}},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "lex.go", results[0].FilePath)
}
