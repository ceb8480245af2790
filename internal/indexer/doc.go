// Package indexer coordinates the indexing pipeline.
//
// For each discovered file: chunk the text, tokenize chunks into the
// lexical engine (boosting declared symbol names), persist chunks and
// symbols, and embed chunk contents into the vector store. Files whose
// content hash is unchanged since the last run are skipped entirely.
//
// Files are processed by a bounded worker pool; per-file failures are
// collected into the run statistics instead of aborting the run. Only one
// index run may be active at a time, enforced with a non-blocking lock so
// a second request fails fast. Within one file, the lexical swap and the
// storage replacement are each atomic, so concurrent searches see the old
// version or the new one, never a mix.
package indexer
