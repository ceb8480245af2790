package storage

import (
	"context"
	"time"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// Store persists indexed files, chunk documents, their embeddings, and
// extracted symbols, and answers the exact-match, semantic, and symbol
// retrieval queries.
type Store interface {
	// File operations
	UpsertFile(ctx context.Context, file *FileRecord) error
	GetFileByPath(ctx context.Context, filePath string) (*FileRecord, error)
	ListFiles(ctx context.Context) ([]*FileRecord, error)
	DeleteFile(ctx context.Context, filePath string) error

	// Document operations
	ReplaceDocuments(ctx context.Context, fileID int64, docs []*DocumentRecord) error
	ListDocumentsByFile(ctx context.Context, fileID int64) ([]*DocumentRecord, error)
	GetDocument(ctx context.Context, filePath string, chunkIndex int) (*DocumentRecord, error)

	// Embedding operations
	InsertEmbeddings(ctx context.Context, batch []*EmbeddingRecord) error

	// Symbol operations
	ReplaceSymbols(ctx context.Context, fileID int64, symbols []types.Symbol) error

	// Search operations
	SearchSimilar(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]SimilarResult, error)
	SearchSubstring(ctx context.Context, needle string, limit int) ([]*DocumentRecord, error)
	SearchSymbols(ctx context.Context, query string, limit int) ([]types.SymbolMatch, error)

	// Maintenance operations
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// FileRecord is a tracked source file. ContentHash drives incremental
// re-indexing: an unchanged hash means the file is skipped wholesale.
type FileRecord struct {
	ID          int64
	FilePath    string // Relative to the indexed root
	ContentHash [32]byte
	ModTime     time.Time
	SizeBytes   int64
	Language    string
	IndexedAt   time.Time
}

// DocumentRecord is one persisted chunk of a file. FilePath is populated on
// reads via the files join; it is not stored on the row.
type DocumentRecord struct {
	ID         int64
	FileID     int64
	FilePath   string
	ChunkIndex int
	Content    string
	StartLine  int
	EndLine    int
	Kind       string
	CreatedAt  time.Time
}

// EmbeddingRecord is a vector attached to a document.
type EmbeddingRecord struct {
	ID         int64
	DocumentID int64
	Vector     []float32
	Provider   string
	Model      string
	CreatedAt  time.Time
}

// SimilarResult is one hit from vector similarity search.
type SimilarResult struct {
	Document   DocumentRecord
	Similarity float64
}

// Stats summarizes index contents.
type Stats struct {
	Files      int    `json:"files"`
	Documents  int    `json:"documents"`
	Embeddings int    `json:"embeddings"`
	Symbols    int    `json:"symbols"`
	Dimension  int    `json:"dimension"`
	SizeBytes  int64  `json:"size_bytes"`
	Provider   string `json:"provider,omitempty"`
}
