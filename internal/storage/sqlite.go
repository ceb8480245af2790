package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (creating if necessary) the index database at dbPath
// and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrStoreIO, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply migrations: %v", types.ErrStoreCorrupt, err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// File operations

func (s *SQLiteStore) UpsertFile(ctx context.Context, file *FileRecord) error {
	query := `
		INSERT INTO files (file_path, content_hash, mod_time, size_bytes, language, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			language = excluded.language,
			indexed_at = excluded.indexed_at
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		file.FilePath, file.ContentHash[:], file.ModTime,
		file.SizeBytes, file.Language, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("%w: upsert file %s: %v", types.ErrStoreIO, file.FilePath, err)
	}
	file.IndexedAt = now
	return nil
}

func (s *SQLiteStore) GetFileByPath(ctx context.Context, filePath string) (*FileRecord, error) {
	query := `
		SELECT id, file_path, content_hash, mod_time, size_bytes, language, indexed_at
		FROM files
		WHERE file_path = ?
	`
	var file FileRecord
	var hash []byte
	var modTime, indexedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, filePath).Scan(
		&file.ID, &file.FilePath, &hash, &modTime, &file.SizeBytes,
		&file.Language, &indexedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get file %s: %v", types.ErrStoreIO, filePath, err)
	}
	copy(file.ContentHash[:], hash)
	if modTime.Valid {
		file.ModTime = modTime.Time
	}
	if indexedAt.Valid {
		file.IndexedAt = indexedAt.Time
	}
	return &file, nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context) ([]*FileRecord, error) {
	query := `
		SELECT id, file_path, content_hash, mod_time, size_bytes, language, indexed_at
		FROM files
		ORDER BY file_path
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = rows.Close() }()

	var files []*FileRecord
	for rows.Next() {
		var file FileRecord
		var hash []byte
		var modTime, indexedAt sql.NullTime
		if err := rows.Scan(&file.ID, &file.FilePath, &hash, &modTime,
			&file.SizeBytes, &file.Language, &indexedAt); err != nil {
			return nil, fmt.Errorf("%w: scan file: %v", types.ErrStoreIO, err)
		}
		copy(file.ContentHash[:], hash)
		if modTime.Valid {
			file.ModTime = modTime.Time
		}
		if indexedAt.Valid {
			file.IndexedAt = indexedAt.Time
		}
		files = append(files, &file)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, filePath string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE file_path = ?", filePath)
	if err != nil {
		return fmt.Errorf("%w: delete file %s: %v", types.ErrStoreIO, filePath, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Document operations

// ReplaceDocuments swaps all persisted chunks of a file inside one
// transaction. Cascading deletes drop the attached embeddings with them.
func (s *SQLiteStore) ReplaceDocuments(ctx context.Context, fileID int64, docs []*DocumentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin replace documents: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("%w: clear documents for file %d: %v", types.ErrStoreIO, fileID, err)
	}

	insert := `
		INSERT INTO documents (file_id, chunk_index, content, start_line, end_line, kind)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	for _, doc := range docs {
		doc.FileID = fileID
		if err := tx.QueryRowContext(ctx, insert,
			fileID, doc.ChunkIndex, doc.Content,
			doc.StartLine, doc.EndLine, doc.Kind).Scan(&doc.ID); err != nil {
			return fmt.Errorf("%w: insert document %d of file %d: %v",
				types.ErrStoreIO, doc.ChunkIndex, fileID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit replace documents: %v", types.ErrStoreIO, err)
	}
	return nil
}

func (s *SQLiteStore) ListDocumentsByFile(ctx context.Context, fileID int64) ([]*DocumentRecord, error) {
	query := `
		SELECT d.id, d.file_id, f.file_path, d.chunk_index, d.content,
		       d.start_line, d.end_line, d.kind, d.created_at
		FROM documents d
		INNER JOIN files f ON d.file_id = f.id
		WHERE d.file_id = ?
		ORDER BY d.chunk_index
	`
	rows, err := s.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents for file %d: %v", types.ErrStoreIO, fileID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanDocuments(rows)
}

// GetDocument fetches one persisted chunk by file path and chunk index.
func (s *SQLiteStore) GetDocument(ctx context.Context, filePath string, chunkIndex int) (*DocumentRecord, error) {
	query := `
		SELECT d.id, d.file_id, f.file_path, d.chunk_index, d.content,
		       d.start_line, d.end_line, d.kind, d.created_at
		FROM documents d
		INNER JOIN files f ON d.file_id = f.id
		WHERE f.file_path = ? AND d.chunk_index = ?
	`
	var doc DocumentRecord
	err := s.db.QueryRowContext(ctx, query, filePath, chunkIndex).Scan(
		&doc.ID, &doc.FileID, &doc.FilePath, &doc.ChunkIndex,
		&doc.Content, &doc.StartLine, &doc.EndLine, &doc.Kind, &doc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document %s#%d: %v", types.ErrStoreIO, filePath, chunkIndex, err)
	}
	return &doc, nil
}

func scanDocuments(rows *sql.Rows) ([]*DocumentRecord, error) {
	var docs []*DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		if err := rows.Scan(&doc.ID, &doc.FileID, &doc.FilePath, &doc.ChunkIndex,
			&doc.Content, &doc.StartLine, &doc.EndLine, &doc.Kind, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", types.ErrStoreIO, err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// Embedding operations

// InsertEmbeddings stores a batch of vectors in one transaction. All vectors
// in the batch and in the existing index must share one dimension; a
// mismatch rejects the whole batch.
func (s *SQLiteStore) InsertEmbeddings(ctx context.Context, batch []*EmbeddingRecord) error {
	if len(batch) == 0 {
		return nil
	}

	dimension := len(batch[0].Vector)
	for _, rec := range batch {
		if len(rec.Vector) != dimension {
			return fmt.Errorf("%w: batch mixes dimensions %d and %d",
				types.ErrDimensionMatch, dimension, len(rec.Vector))
		}
	}

	var existing int
	err := s.db.QueryRowContext(ctx, "SELECT dimension FROM embeddings LIMIT 1").Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: check embedding dimension: %v", types.ErrStoreIO, err)
	}
	if err == nil && existing != dimension {
		return fmt.Errorf("%w: index holds %d-dimensional vectors, got %d",
			types.ErrDimensionMatch, existing, dimension)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin insert embeddings: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := `
		INSERT INTO embeddings (document_id, vector, dimension, provider, model)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	for _, rec := range batch {
		if _, err := tx.ExecContext(ctx, insert,
			rec.DocumentID, serializeVector(rec.Vector), dimension,
			rec.Provider, rec.Model); err != nil {
			return fmt.Errorf("%w: insert embedding for document %d: %v",
				types.ErrStoreIO, rec.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit insert embeddings: %v", types.ErrStoreIO, err)
	}
	return nil
}

// Symbol operations

func (s *SQLiteStore) ReplaceSymbols(ctx context.Context, fileID int64, symbols []types.Symbol) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin replace symbols: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM symbols WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("%w: clear symbols for file %d: %v", types.ErrStoreIO, fileID, err)
	}

	for _, sym := range symbols {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO symbols (file_id, name, kind, line) VALUES (?, ?, ?, ?)",
			fileID, sym.Name, string(sym.Kind), sym.Line); err != nil {
			return fmt.Errorf("%w: insert symbol %s: %v", types.ErrStoreIO, sym.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit replace symbols: %v", types.ErrStoreIO, err)
	}
	return nil
}

// Search operations

// SearchSubstring returns documents whose content contains needle exactly,
// case-sensitive, in deterministic file order.
func (s *SQLiteStore) SearchSubstring(ctx context.Context, needle string, limit int) ([]*DocumentRecord, error) {
	if needle == "" || limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT d.id, d.file_id, f.file_path, d.chunk_index, d.content,
		       d.start_line, d.end_line, d.kind, d.created_at
		FROM documents d
		INNER JOIN files f ON d.file_id = f.id
		WHERE instr(d.content, ?) > 0
		ORDER BY f.file_path, d.chunk_index
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, needle, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: substring search: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = rows.Close() }()

	return scanDocuments(rows)
}

// SearchSymbols matches symbols by name. An exact name scores 1.0, a
// case-insensitive match 0.9, a prefix 0.8, any other substring 0.6.
func (s *SQLiteStore) SearchSymbols(ctx context.Context, query string, limit int) ([]types.SymbolMatch, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}

	sqlQuery := `
		SELECT f.file_path, s.name, s.kind, s.line
		FROM symbols s
		INNER JOIN files f ON s.file_id = f.id
		WHERE s.name LIKE ? ESCAPE '\'
	`
	pattern := "%" + likeEscape(query) + "%"
	rows, err := s.db.QueryContext(ctx, sqlQuery, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: symbol search: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = rows.Close() }()

	var matches []types.SymbolMatch
	for rows.Next() {
		var m types.SymbolMatch
		var kind string
		if err := rows.Scan(&m.FilePath, &m.Name, &kind, &m.Line); err != nil {
			return nil, fmt.Errorf("%w: scan symbol: %v", types.ErrStoreIO, err)
		}
		m.Kind = types.SymbolKind(kind)
		m.Score = symbolScore(m.Name, query)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].FilePath < matches[j].FilePath
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func symbolScore(name, query string) float64 {
	switch {
	case name == query:
		return 1.0
	case strings.EqualFold(name, query):
		return 0.9
	case strings.HasPrefix(strings.ToLower(name), strings.ToLower(query)):
		return 0.8
	default:
		return 0.6
	}
}

// likeEscape escapes LIKE wildcards in user input.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Maintenance operations

// Clear drops all indexed data but keeps the schema.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	// Cascades wipe documents, embeddings, and symbols.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM files"); err != nil {
		return fmt.Errorf("%w: clear index: %v", types.ErrStoreIO, err)
	}
	return nil
}

// Stats reports row counts and the stored vector dimension.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM files", &stats.Files},
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM embeddings", &stats.Embeddings},
		{"SELECT COUNT(*) FROM symbols", &stats.Symbols},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("%w: collect stats: %v", types.ErrStoreIO, err)
		}
	}

	var dimension sql.NullInt64
	var provider sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension, provider FROM embeddings LIMIT 1").Scan(&dimension, &provider)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: collect embedding stats: %v", types.ErrStoreIO, err)
	}
	if dimension.Valid {
		stats.Dimension = int(dimension.Int64)
	}
	if provider.Valid {
		stats.Provider = provider.String
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.SizeBytes = pageCount * pageSize
		}
	}

	return stats, nil
}
