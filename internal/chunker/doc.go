// Package chunker divides file text into contiguous line ranges for indexing.
//
// The chunker scans for language-aware boundary lines (function and type
// openings for code, headers and fences for markdown) and cuts a new chunk at
// each one, force-closing any chunk that reaches the configured size ceiling.
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks := c.Chunk(fileText, chunker.StrategyFor("auth/login.go"))
//
//	for _, ch := range chunks {
//	    fmt.Printf("lines %d-%d (%s)\n", ch.StartLine, ch.EndLine, ch.Kind)
//	}
//
// # Coverage Invariant
//
// For every non-empty input the output chunks are strictly ordered,
// non-overlapping, gap-free, and their union is exactly [0, totalLines-1].
// Joining a chunk's lines with "\n" reproduces the corresponding slice of the
// original text byte for byte, including any carriage returns.
//
// # Strategies
//
// Boundary detection is pluggable. The code strategy keys off declaration
// openings per language; the markdown strategy keys off section headers and
// fenced blocks. Strategy selection is the caller's job, typically via
// StrategyFor(path); the Chunker itself never inspects file names.
package chunker
