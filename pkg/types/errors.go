package types

import "errors"

// Shared error taxonomy. Validation errors are raised at construction time;
// provider errors carry source attribution so a degraded query can report
// which sources were lost.
var (
	// Configuration validation
	ErrInvalidConfig = errors.New("invalid configuration")

	// Embedding provider failures
	ErrModelUnavailable = errors.New("embedding model unavailable")
	ErrInferenceFailed  = errors.New("embedding inference failed")

	// Vector store failures
	ErrStoreIO        = errors.New("vector store I/O error")
	ErrStoreCorrupt   = errors.New("vector store corrupted")
	ErrNotFound       = errors.New("not found")
	ErrDimensionMatch = errors.New("embedding dimension mismatch")

	// Query handling
	ErrNoSourcesAvailable = errors.New("no retrieval sources available")
)
