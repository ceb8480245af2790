// Package searcher is the query-side entry point: it fans a query out to
// the four retrieval sources in parallel (exact substring, lexical BM25,
// semantic vector, symbol name), fuses their candidates into one ranked
// list, and caches fused results per query until the next index mutation.
//
// Sources degrade independently. A failing embedding provider or store
// query drops that source from the fusion pass; the search only errors,
// with types.ErrNoSourcesAvailable, when no source at all can contribute.
package searcher
