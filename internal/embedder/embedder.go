package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Common errors
var (
	ErrEmptyText   = errors.New("text cannot be empty")
	ErrUnknownTask = errors.New("unknown embedding task")
)

// Task selects the embedding mode. Queries and documents embed differently
// on providers that support asymmetric retrieval; providers that do not
// simply ignore the task.
type Task string

const (
	TaskSearchQuery    Task = "search_query"
	TaskSearchDocument Task = "search_document"
	TaskCodeDefinition Task = "code_definition"
	TaskCodeUsage      Task = "code_usage"
)

// Valid reports whether the task is one of the defined modes.
func (t Task) Valid() bool {
	switch t {
	case TaskSearchQuery, TaskSearchDocument, TaskCodeDefinition, TaskCodeUsage:
		return true
	}
	return false
}

// Provider generates embeddings for text. Implementations return vectors of
// a fixed dimension, L2-normalized so the dot product is cosine similarity.
//
// Errors wrap types.ErrModelUnavailable when the provider cannot serve any
// request (missing credentials, unknown model) and types.ErrInferenceFailed
// when a specific request fails.
type Provider interface {
	// Embed generates the embedding for text under the given task.
	Embed(ctx context.Context, text string, task Task) ([]float32, error)

	// Dimension returns the vector dimension this provider produces.
	Dimension() int

	// Name returns the provider name.
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

func validateInput(text string, task Task) error {
	if text == "" {
		return ErrEmptyText
	}
	if !task.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	return nil
}

// NormalizeVector scales a vector to unit length. The zero vector is
// returned unchanged.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
