// Package ranker provides the in-memory lexical search index.
//
// Documents are tokenized chunks; the engine keeps an inverted index from
// term to weighted term frequencies and scores queries with BM25. The IDF
// component ln((N-df+0.5)/(df+0.5)) is floored at a small positive epsilon
// so terms appearing in most documents still contribute instead of
// subtracting from the score.
//
// The index supports atomic per-file replacement: ReplaceFile swaps all
// chunks of a file under one write lock, so concurrent searches never see a
// file half re-indexed.
package ranker
