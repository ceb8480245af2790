// Package types provides shared type definitions for the codesearch MCP server.
//
// This package defines the domain types flowing between the retrieval
// components: chunks, tokens, indexed documents, symbols, and fused search
// results.
//
// # Core Types
//
// Chunk is the unit of indexing: a contiguous, line-addressable slice of a
// file with zero-based inclusive line bounds. For any file, chunk ranges are
// disjoint, ordered, and cover every line exactly once:
//
//	chunk := types.Chunk{
//	    Content:   "func Greet() {\n\tfmt.Println(\"hi\")\n}",
//	    StartLine: 4,
//	    EndLine:   6,
//	    Kind:      types.ChunkCode,
//	}
//
// IndexedDocument pairs a chunk with its tokenization for the lexical
// ranking engine; its ID is derived from the file path and chunk index:
//
//	id := types.DocumentID("internal/auth/login.go", 2) // "internal/auth/login.go#2"
//
// # Search Results
//
// FusedResult is the final per-query output. MatchType is a bit set recording
// every source that contributed:
//
//	r.Match.Has(types.MatchLexical) // matched by BM25
//	r.Match.String()                // "exact+lexical"
//
// Results are ordered by descending score; ties break by source priority
// (exact > lexical > semantic > symbol) and then file path.
package types
