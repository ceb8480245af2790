package textproc

import (
	"strings"
	"unicode"

	"github.com/blevesearch/go-porterstemmer"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// Config contains tokenizer configuration.
type Config struct {
	Stemming bool // Apply Porter stemming to normalized terms (default: off)
}

// Tokenizer turns raw text into a stream of normalized terms: case-folded,
// identifier-split, stop-word filtered, optionally stemmed.
type Tokenizer struct {
	stemming bool
}

// New creates a Tokenizer with default configuration.
func New() *Tokenizer {
	return &Tokenizer{}
}

// NewWithConfig creates a Tokenizer with explicit configuration.
func NewWithConfig(cfg Config) *Tokenizer {
	return &Tokenizer{stemming: cfg.Stemming}
}

// Tokenize produces the token stream for text with unit importance weight.
func (t *Tokenizer) Tokenize(text string) []types.Token {
	return t.TokenizeWithWeight(text, 1.0)
}

// TokenizeWithWeight produces the token stream with a caller-supplied
// importance weight, used to boost symbol names over surrounding prose.
func (t *Tokenizer) TokenizeWithWeight(text string, weight float64) []types.Token {
	terms := t.Terms(text)
	tokens := make([]types.Token, len(terms))
	for i, term := range terms {
		tokens[i] = types.Token{Text: term, Position: i, Weight: weight}
	}
	return tokens
}

// Terms returns the normalized term sequence without positions. Queries and
// documents go through the same pipeline so their vocabularies agree.
func (t *Tokenizer) Terms(text string) []string {
	var terms []string
	for _, word := range splitWords(text) {
		for _, part := range SplitIdentifier(word) {
			term := strings.ToLower(part)
			if len(term) < 2 {
				continue
			}
			if _, stop := stopWords[term]; stop {
				continue
			}
			if t.stemming {
				term = porterstemmer.StemString(term)
			}
			terms = append(terms, term)
		}
	}
	return terms
}

// splitWords cuts text into maximal runs of letters and digits.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SplitIdentifier breaks a word on case and underscore boundaries, so
// "getUserById" becomes ["get", "User", "By", "Id"] and "HTTPServer"
// becomes ["HTTP", "Server"]. Digit runs are kept as their own parts.
func SplitIdentifier(word string) []string {
	var parts []string
	for _, segment := range strings.Split(word, "_") {
		parts = splitCase(parts, segment)
	}
	return parts
}

// splitCase appends the case-boundary parts of one underscore-free segment.
func splitCase(parts []string, segment string) []string {
	runes := []rune(segment)
	start := 0

	for i := 1; i <= len(runes); i++ {
		if i == len(runes) {
			parts = appendPart(parts, runes[start:i])
			break
		}

		prev, cur := runes[i-1], runes[i]
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			// camelCase boundary
			parts = appendPart(parts, runes[start:i])
			start = i
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// acronym followed by a capitalized word: HTTPServer -> HTTP | Server
			parts = appendPart(parts, runes[start:i])
			start = i
		case unicode.IsDigit(prev) != unicode.IsDigit(cur):
			parts = appendPart(parts, runes[start:i])
			start = i
		}
	}

	return parts
}

func appendPart(parts []string, part []rune) []string {
	if len(part) == 0 {
		return parts
	}
	return append(parts, string(part))
}
