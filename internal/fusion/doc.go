// Package fusion merges results from the four retrieval sources into one
// ranked list.
//
// Each source reports candidates on its own scale: exact substring matches
// at 1.0, lexical BM25 scores unbounded above, semantic similarity and
// symbol confidence in [0, 1]. The engine normalizes each to [0, 1],
// applies the per-source weight, and sums contributions for chunks found
// by more than one source, keeping every provenance flag.
//
// Semantic candidates below the similarity threshold are dropped before
// weighting. Candidates above the high-similarity knee receive a convex
// boost so near-duplicates of the query rank above broadly relevant text.
//
// Ties break on source priority, then file path, then start line, so a
// fused ranking is reproducible across runs.
package fusion
