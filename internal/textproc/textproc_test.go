package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"camel case", "getUserById", []string{"get", "User", "By", "Id"}},
		{"snake case", "parse_config_file", []string{"parse", "config", "file"}},
		{"acronym prefix", "HTTPServer", []string{"HTTP", "Server"}},
		{"acronym suffix", "serveHTTP", []string{"serve", "HTTP"}},
		{"digits", "sha256Sum", []string{"sha", "256", "Sum"}},
		{"plain word", "chunker", []string{"chunker"}},
		{"mixed", "newLRUCache_v2", []string{"new", "LRU", "Cache", "v", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIdentifier(tt.in))
		})
	}
}

func TestTerms_CaseFoldingAndStopWords(t *testing.T) {
	tok := New()

	terms := tok.Terms("The Parser reads the config")

	assert.Equal(t, []string{"parser", "reads", "config"}, terms)
}

func TestTerms_IdentifierSplitting(t *testing.T) {
	tok := New()

	terms := tok.Terms("func getUserById(id string)")

	assert.Equal(t, []string{"func", "get", "user", "by", "id", "id", "string"}, terms)
}

func TestTerms_ShortTokensDropped(t *testing.T) {
	tok := New()

	terms := tok.Terms("x := y + n")

	assert.Empty(t, terms)
}

func TestTerms_Stemming(t *testing.T) {
	tok := NewWithConfig(Config{Stemming: true})

	terms := tok.Terms("running connections")

	assert.Equal(t, []string{"run", "connect"}, terms)
}

func TestTokenize_PositionsAndWeights(t *testing.T) {
	tok := New()

	tokens := tok.Tokenize("delete stale entries")

	assert.Len(t, tokens, 3)
	for i, tk := range tokens {
		assert.Equal(t, i, tk.Position)
		assert.Equal(t, 1.0, tk.Weight)
	}

	boosted := tok.TokenizeWithWeight("EvictOldest", 2.5)
	assert.Len(t, boosted, 2)
	assert.Equal(t, 2.5, boosted[0].Weight)
}

func TestTerms_EmptyInput(t *testing.T) {
	tok := New()
	assert.Empty(t, tok.Terms(""))
	assert.Empty(t, tok.Terms("   \t\n"))
}
