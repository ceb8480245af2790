package chunker

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

const (
	// DefaultMaxLines is the hard ceiling on chunk size. A chunk is force-closed
	// at this many lines even when no boundary has been seen.
	DefaultMaxLines = 120
)

// Strategy decides where chunks begin. Implementations are stateless
// predicates over a single line; the Chunker owns all slicing logic.
type Strategy interface {
	// IsBoundary reports whether a new chunk should start at this line.
	IsBoundary(line string) bool

	// Kind labels chunks produced under this strategy.
	Kind() types.ChunkKind
}

// Config contains configuration for the Chunker.
type Config struct {
	MaxLines int // Hard ceiling on lines per chunk (default: DefaultMaxLines)
	Overlap  int // Reserved; must be 0. Overlapping chunks would break the coverage invariant.
}

// Chunker splits file text into contiguous, non-overlapping chunks that
// together cover every line of the input exactly once.
type Chunker struct {
	maxLines int
}

// New creates a Chunker with default configuration.
func New() *Chunker {
	return &Chunker{maxLines: DefaultMaxLines}
}

// NewWithConfig creates a Chunker, rejecting malformed configuration.
func NewWithConfig(cfg Config) (*Chunker, error) {
	if cfg.MaxLines <= 0 {
		return nil, fmt.Errorf("%w: max lines must be positive, got %d", types.ErrInvalidConfig, cfg.MaxLines)
	}
	if cfg.Overlap != 0 {
		return nil, fmt.Errorf("%w: chunk overlap is not supported, got %d", types.ErrInvalidConfig, cfg.Overlap)
	}
	return &Chunker{maxLines: cfg.MaxLines}, nil
}

// Chunk splits text into chunks using the given strategy.
//
// Guarantees for every non-empty input:
//   - chunk ranges are strictly increasing, contiguous, and non-overlapping
//   - their union is exactly [0, totalLines-1]
//   - joining a chunk's recorded lines with "\n" reproduces the matching
//     slice of the original text
//
// Empty input produces no chunks. Input with no boundaries and under the
// size ceiling produces exactly one chunk spanning all lines.
func (c *Chunker) Chunk(text string, strategy Strategy) []types.Chunk {
	if text == "" {
		return nil
	}

	lines := SplitLines(text)
	kind := strategy.Kind()

	chunks := make([]types.Chunk, 0, 8)
	start := 0
	for i := 1; i <= len(lines); i++ {
		atEnd := i == len(lines)
		// A boundary closes the running chunk before the boundary line; the
		// size ceiling closes it unconditionally.
		if atEnd || strategy.IsBoundary(lines[i]) || i-start >= c.maxLines {
			chunks = append(chunks, types.Chunk{
				Content:   strings.Join(lines[start:i], "\n"),
				StartLine: start,
				EndLine:   i - 1,
				Kind:      kind,
			})
			start = i
		}
	}

	return chunks
}

// SplitLines splits text into lines on "\n", tolerating CRLF by leaving any
// "\r" in place so chunk content reconstructs the original bytes. A single
// trailing newline does not count as an extra empty line.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// codeStrategy starts chunks at declaration openings for the configured
// language, falling back to a generic multi-language pattern.
type codeStrategy struct {
	boundary *regexp.Regexp
}

var (
	genericBoundary = regexp.MustCompile(`^\s*(func|fn|def|class|impl|interface|struct|function|public\s+\w|private\s+\w|protected\s+\w)\b`)

	languageBoundaries = map[string]*regexp.Regexp{
		"go":         regexp.MustCompile(`^(func|type)\b`),
		"python":     regexp.MustCompile(`^\s*(def|class|async\s+def)\b`),
		"rust":       regexp.MustCompile(`^\s*(pub\s+)?(fn|struct|enum|impl|trait|mod)\b`),
		"javascript": regexp.MustCompile(`^\s*(export\s+)?(async\s+)?(function|class)\b`),
		"typescript": regexp.MustCompile(`^\s*(export\s+)?(async\s+)?(function|class|interface)\b`),
		"java":       regexp.MustCompile(`^\s*(public|private|protected|static|final|abstract)\s+\w`),
	}
)

// NewCodeStrategy returns the boundary strategy for a source language.
// Unknown languages get the generic pattern, never an error.
func NewCodeStrategy(language string) Strategy {
	re, ok := languageBoundaries[strings.ToLower(language)]
	if !ok {
		re = genericBoundary
	}
	return &codeStrategy{boundary: re}
}

func (s *codeStrategy) IsBoundary(line string) bool {
	return s.boundary.MatchString(line)
}

func (s *codeStrategy) Kind() types.ChunkKind {
	return types.ChunkCode
}

// markdownStrategy starts chunks at section headers and fenced-block
// delimiters instead of declaration openings. Same contract as the code
// strategy, different boundary predicate.
type markdownStrategy struct{}

var markdownBoundary = regexp.MustCompile("^(#{1,6}\\s|```|~~~)")

// NewMarkdownStrategy returns the boundary strategy for structured markup.
func NewMarkdownStrategy() Strategy {
	return &markdownStrategy{}
}

func (s *markdownStrategy) IsBoundary(line string) bool {
	return markdownBoundary.MatchString(line)
}

func (s *markdownStrategy) Kind() types.ChunkKind {
	return types.ChunkMarkdown
}

// extensionLanguages maps file extensions to the language name used for
// boundary selection and stored on indexed documents.
var extensionLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".rs":   "rust",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".rb":   "ruby",
}

// LanguageFor resolves the language name for a file path; empty when unknown.
func LanguageFor(path string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

// StrategyFor resolves the chunking strategy for a file path. Selection lives
// with the caller of Chunk; the Chunker itself is strategy-agnostic.
func StrategyFor(path string) Strategy {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return NewMarkdownStrategy()
	default:
		return NewCodeStrategy(LanguageFor(path))
	}
}
