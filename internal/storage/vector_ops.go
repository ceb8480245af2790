package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// SearchSimilar returns the documents whose embeddings are nearest to the
// query vector, as cosine similarity in [0, 1] range for unit vectors.
// Results below minSimilarity are dropped. The sqlite-vec build computes
// distance inside the database; the pure Go build scans and ranks here.
func (s *SQLiteStore) SearchSimilar(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]SimilarResult, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}
	if VectorExtensionAvailable {
		return s.searchSimilarOptimized(ctx, vector, limit, minSimilarity)
	}
	return s.searchSimilarFallback(ctx, vector, limit, minSimilarity)
}

// searchSimilarOptimized pushes distance computation into SQL via the
// sqlite-vec extension.
func (s *SQLiteStore) searchSimilarOptimized(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]SimilarResult, error) {
	blob := serializeVector(vector)

	query := `
		SELECT d.id, d.file_id, f.file_path, d.chunk_index, d.content,
		       d.start_line, d.end_line, d.kind, d.created_at,
		       1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM documents d
		INNER JOIN embeddings e ON d.id = e.document_id
		INNER JOIN files f ON d.file_id = f.id
		WHERE e.dimension = ?
		AND (1.0 - vec_distance_cosine(e.vector, ?)) >= ?
		ORDER BY similarity DESC, f.file_path, d.chunk_index
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query,
		blob, len(vector), blob, minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SimilarResult, 0, limit)
	for rows.Next() {
		var r SimilarResult
		if err := scanSimilarRow(rows, &r); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchSimilarFallback loads candidate embeddings and computes cosine
// similarity in Go. Rows whose dimension differs from the query are skipped
// rather than failing the whole search.
func (s *SQLiteStore) searchSimilarFallback(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]SimilarResult, error) {
	query := `
		SELECT d.id, d.file_id, f.file_path, d.chunk_index, d.content,
		       d.start_line, d.end_line, d.kind, d.created_at, e.vector
		FROM documents d
		INNER JOIN embeddings e ON d.id = e.document_id
		INNER JOIN files f ON d.file_id = f.id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = rows.Close() }()

	var results []SimilarResult
	for rows.Next() {
		var r SimilarResult
		var blob []byte
		if err := rows.Scan(&r.Document.ID, &r.Document.FileID, &r.Document.FilePath,
			&r.Document.ChunkIndex, &r.Document.Content, &r.Document.StartLine,
			&r.Document.EndLine, &r.Document.Kind, &r.Document.CreatedAt, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan embedding: %v", types.ErrStoreIO, err)
		}

		stored := deserializeVector(blob)
		if len(stored) != len(vector) {
			continue
		}

		r.Similarity = cosineSimilarity(vector, stored)
		if r.Similarity < minSimilarity {
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Document.FilePath != results[j].Document.FilePath {
			return results[i].Document.FilePath < results[j].Document.FilePath
		}
		return results[i].Document.ChunkIndex < results[j].Document.ChunkIndex
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func scanSimilarRow(rows *sql.Rows, r *SimilarResult) error {
	if err := rows.Scan(&r.Document.ID, &r.Document.FileID, &r.Document.FilePath,
		&r.Document.ChunkIndex, &r.Document.Content, &r.Document.StartLine,
		&r.Document.EndLine, &r.Document.Kind, &r.Document.CreatedAt,
		&r.Similarity); err != nil {
		return fmt.Errorf("%w: scan similarity result: %v", types.ErrStoreIO, err)
	}
	return nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
