package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ChunkKind classifies the content a chunk was cut from.
type ChunkKind string

const (
	ChunkCode     ChunkKind = "code"
	ChunkMarkdown ChunkKind = "markdown"
	ChunkText     ChunkKind = "text"
)

// Chunk is a contiguous, line-addressable slice of one file. Line numbers are
// zero-based and inclusive; across all chunks of a file the ranges are
// strictly increasing, gap-free, and cover exactly [0, totalLines-1].
// Chunks are immutable after creation and regenerated wholesale on re-index.
type Chunk struct {
	Content   string
	StartLine int
	EndLine   int
	Kind      ChunkKind
}

// LineCount returns the number of lines the chunk spans.
func (c *Chunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}

// ContentHash computes the SHA-256 hash of the chunk content.
func (c *Chunk) ContentHash() [32]byte {
	return sha256.Sum256([]byte(c.Content))
}

// Validate checks the chunk's internal invariants.
func (c *Chunk) Validate() error {
	if c.StartLine < 0 || c.EndLine < 0 {
		return errors.New("line numbers must be non-negative")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	switch c.Kind {
	case ChunkCode, ChunkMarkdown, ChunkText:
	default:
		return errors.New("invalid chunk kind")
	}
	return nil
}

// Token is one normalized term from a chunk's token stream. Position is the
// zero-based index within the stream; Weight scales the term's contribution
// to lexical scoring (symbol names above comments, for example).
type Token struct {
	Text     string
	Position int
	Weight   float64
}

// IndexedDocument is the unit the lexical ranking engine indexes: one chunk
// plus its tokenization. Its lifetime is tied to the chunk; on re-index the
// document is removed and re-added, never patched in place.
type IndexedDocument struct {
	ID         string
	FilePath   string
	ChunkIndex int
	Tokens     []Token
	StartLine  int
	EndLine    int
	Language   string
}

// DocumentID derives the stable document identifier for a file's n-th chunk.
func DocumentID(filePath string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", filePath, chunkIndex)
}
