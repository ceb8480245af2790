// Package storage persists the index to a single SQLite database.
//
// Four tables hold the index: files (with content hashes for incremental
// re-indexing), documents (chunks, one row per chunk), embeddings (one
// vector per document, little-endian float32 blobs), and symbols. Foreign
// keys cascade so dropping a file removes everything derived from it, and
// ReplaceDocuments swaps a file's chunks in one transaction.
//
// Two build modes exist, selected by build tags:
//
//	sqlite_vec  CGO build on mattn/go-sqlite3 with the sqlite-vec
//	            extension; vector distance is computed in SQL.
//	purego      default; modernc.org/sqlite, no C compiler needed,
//	            similarity computed in Go over a full scan.
//
// Both modes produce identical results; they differ in speed and in what
// the build environment requires.
//
// Embedding batches are dimension-checked against the existing index; a
// mismatch rejects the whole batch with types.ErrDimensionMatch.
package storage
