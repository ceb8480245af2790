// Package embedder generates vector embeddings for chunks and queries.
//
// A Provider turns (text, task) into an L2-normalized float32 vector. Two
// implementations exist: OpenAIProvider calls the OpenAI embeddings API
// with retry and backoff, and HashProvider derives deterministic vectors
// from a content hash so the pipeline works offline.
//
// Cache wraps a Provider with a bounded LRU and singleflight request
// coalescing: N concurrent requests for the same (text, task) cost one
// provider call, and a cached entry is returned bit-identical every time.
// The provider is constructed lazily on first use, so a server can start
// without credentials and only fail if semantic search is actually used.
//
// Provider errors distinguish two conditions: types.ErrModelUnavailable
// when no request can succeed (missing key, unknown model) and
// types.ErrInferenceFailed when one request failed.
package embedder
