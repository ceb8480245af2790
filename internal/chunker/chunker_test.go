package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// assertCoverage verifies the chunk set is ordered, contiguous, and covers
// exactly [0, totalLines-1].
func assertCoverage(t *testing.T, chunks []types.Chunk, totalLines int) {
	t.Helper()
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].StartLine)
	assert.Equal(t, totalLines-1, chunks[len(chunks)-1].EndLine)

	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.StartLine, ch.EndLine, "chunk %d inverted", i)
		if i > 0 {
			assert.Equal(t, chunks[i-1].EndLine+1, ch.StartLine,
				"gap or overlap between chunk %d and %d", i-1, i)
		}
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New()
	chunks := c.Chunk("", NewCodeStrategy("go"))
	assert.Empty(t, chunks)
}

func TestChunk_NoBoundariesSingleChunk(t *testing.T) {
	c := New()
	text := "one\ntwo\nthree"

	chunks := c.Chunk(text, NewCodeStrategy("go"))

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.Equal(t, text, chunks[0].Content)
}

func TestChunk_WhitespaceOnlyInput(t *testing.T) {
	c := New()
	chunks := c.Chunk("   \n\t\n  ", NewCodeStrategy("go"))

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
}

func TestChunk_ThreeFunctionsThreeChunks(t *testing.T) {
	c := New()
	text := strings.Join([]string{
		"func alpha() {",
		"\treturn",
		"}",
		"func beta() {",
		"\treturn",
		"}",
		"func gamma() {",
		"\treturn",
		"}",
	}, "\n")

	chunks := c.Chunk(text, NewCodeStrategy("go"))

	require.Len(t, chunks, 3)
	assertCoverage(t, chunks, 9)
	for i, ch := range chunks {
		assert.True(t, strings.HasPrefix(ch.Content, "func "), "chunk %d should start at a function boundary", i)
	}
	assert.Contains(t, chunks[1].Content, "beta")
}

func TestChunk_ConsecutiveBoundaryLines(t *testing.T) {
	c := New()
	text := "func a()\nfunc b()\nfunc c()"

	chunks := c.Chunk(text, NewCodeStrategy("go"))

	require.Len(t, chunks, 3)
	assertCoverage(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.StartLine)
		assert.Equal(t, i, ch.EndLine)
	}
}

func TestChunk_SizeCeilingForcesSplit(t *testing.T) {
	c, err := NewWithConfig(Config{MaxLines: 10})
	require.NoError(t, err)

	lines := make([]string, 25)
	for i := range lines {
		lines[i] = "x := 1"
	}
	chunks := c.Chunk(strings.Join(lines, "\n"), NewCodeStrategy("go"))

	require.Len(t, chunks, 3)
	assertCoverage(t, chunks, 25)
	assert.Equal(t, 10, chunks[0].LineCount())
	assert.Equal(t, 10, chunks[1].LineCount())
	assert.Equal(t, 5, chunks[2].LineCount())
}

func TestChunk_MixedLineEndings(t *testing.T) {
	c := New()
	text := "alpha\r\nbeta\ngamma\r\ndelta"

	chunks := c.Chunk(text, NewCodeStrategy("go"))

	require.Len(t, chunks, 1)
	assert.Equal(t, 3, chunks[0].EndLine)
	// Reconstruction preserves the original bytes, CR included.
	assert.Equal(t, text, chunks[0].Content)
}

func TestChunk_TrailingNewlineNotAnExtraLine(t *testing.T) {
	c := New()
	chunks := c.Chunk("solo line\n", NewCodeStrategy("go"))

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].EndLine)
}

func TestChunk_ReconstructionMatchesOriginal(t *testing.T) {
	c := New()
	text := strings.Join([]string{
		"package demo",
		"",
		"func first() {",
		"\tdoWork()",
		"}",
		"",
		"func second() {",
		"\tdoMore()",
		"}",
	}, "\n")

	chunks := c.Chunk(text, NewCodeStrategy("go"))
	assertCoverage(t, chunks, 9)

	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Content
	}
	assert.Equal(t, text, strings.Join(parts, "\n"))
}

func TestChunk_MarkdownStrategy(t *testing.T) {
	c := New()
	text := strings.Join([]string{
		"intro paragraph",
		"# Setup",
		"run the installer",
		"## Details",
		"```go",
		"func main() {}",
		"```",
		"closing notes",
	}, "\n")

	chunks := c.Chunk(text, NewMarkdownStrategy())

	assertCoverage(t, chunks, 8)
	require.Len(t, chunks, 5)
	assert.Equal(t, types.ChunkMarkdown, chunks[0].Kind)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "# Setup"))
	assert.True(t, strings.HasPrefix(chunks[2].Content, "## Details"))
}

func TestChunk_PythonBoundaries(t *testing.T) {
	c := New()
	text := strings.Join([]string{
		"import os",
		"",
		"def handler(event):",
		"    return event",
		"",
		"class Worker:",
		"    def run(self):",
		"        pass",
	}, "\n")

	chunks := c.Chunk(text, NewCodeStrategy("python"))

	assertCoverage(t, chunks, 8)
	// import preamble, handler, class header, run method
	require.Len(t, chunks, 4)
}

func TestNewWithConfig_Validation(t *testing.T) {
	_, err := NewWithConfig(Config{MaxLines: 0})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = NewWithConfig(Config{MaxLines: -5})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = NewWithConfig(Config{MaxLines: 50, Overlap: 2})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, types.ChunkMarkdown, StrategyFor("README.md").Kind())
	assert.Equal(t, types.ChunkCode, StrategyFor("main.go").Kind())
	assert.Equal(t, types.ChunkCode, StrategyFor("unknown.xyz").Kind())
}

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "go", LanguageFor("cmd/server/main.go"))
	assert.Equal(t, "python", LanguageFor("scripts/tool.PY"))
	assert.Equal(t, "", LanguageFor("notes.txt"))
}
