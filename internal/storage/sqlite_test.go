package storage

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insertTestFile(t *testing.T, store *SQLiteStore, path, content string) *FileRecord {
	t.Helper()
	file := &FileRecord{
		FilePath:    path,
		ContentHash: sha256.Sum256([]byte(content)),
		ModTime:     time.Now(),
		SizeBytes:   int64(len(content)),
		Language:    "go",
	}
	require.NoError(t, store.UpsertFile(context.Background(), file))
	require.NotZero(t, file.ID)
	return file
}

func TestUpsertFile_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	file := insertTestFile(t, store, "internal/app/main.go", "package app")

	got, err := store.GetFileByPath(ctx, "internal/app/main.go")
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)
	assert.Equal(t, file.ContentHash, got.ContentHash)
	assert.Equal(t, "go", got.Language)
}

func TestUpsertFile_UpdateKeepsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	file := insertTestFile(t, store, "a.go", "v1")
	firstID := file.ID

	updated := &FileRecord{
		FilePath:    "a.go",
		ContentHash: sha256.Sum256([]byte("v2")),
		Language:    "go",
	}
	require.NoError(t, store.UpsertFile(ctx, updated))
	assert.Equal(t, firstID, updated.ID)

	got, err := store.GetFileByPath(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, updated.ContentHash, got.ContentHash)
}

func TestGetFileByPath_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetFileByPath(context.Background(), "missing.go")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestReplaceDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "pkg/x.go", "package x")

	first := []*DocumentRecord{
		{ChunkIndex: 0, Content: "func a() {}", StartLine: 0, EndLine: 2, Kind: "code"},
		{ChunkIndex: 1, Content: "func b() {}", StartLine: 3, EndLine: 5, Kind: "code"},
	}
	require.NoError(t, store.ReplaceDocuments(ctx, file.ID, first))

	docs, err := store.ListDocumentsByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "pkg/x.go", docs[0].FilePath)
	assert.Equal(t, 0, docs[0].ChunkIndex)

	// Replacement swaps the whole chunk set, not a merge.
	second := []*DocumentRecord{
		{ChunkIndex: 0, Content: "func c() {}", StartLine: 0, EndLine: 4, Kind: "code"},
	}
	require.NoError(t, store.ReplaceDocuments(ctx, file.ID, second))

	docs, err = store.ListDocumentsByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "func c() {}", docs[0].Content)
}

func TestGetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "pkg/y.go", "package y")

	docs := []*DocumentRecord{
		{ChunkIndex: 0, Content: "func top() {}", StartLine: 0, EndLine: 2, Kind: "code"},
		{ChunkIndex: 1, Content: "func bottom() {}", StartLine: 3, EndLine: 5, Kind: "code"},
	}
	require.NoError(t, store.ReplaceDocuments(ctx, file.ID, docs))

	got, err := store.GetDocument(ctx, "pkg/y.go", 1)
	require.NoError(t, err)
	assert.Equal(t, "func bottom() {}", got.Content)
	assert.Equal(t, "pkg/y.go", got.FilePath)
	assert.Equal(t, 3, got.StartLine)

	_, err = store.GetDocument(ctx, "pkg/y.go", 7)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = store.GetDocument(ctx, "missing.go", 0)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteFile_Cascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "gone.go", "package gone")

	docs := []*DocumentRecord{{ChunkIndex: 0, Content: "func gone() {}", StartLine: 0, EndLine: 1, Kind: "code"}}
	require.NoError(t, store.ReplaceDocuments(ctx, file.ID, docs))
	require.NoError(t, store.InsertEmbeddings(ctx, []*EmbeddingRecord{
		{DocumentID: docs[0].ID, Vector: []float32{1, 0, 0}, Provider: "hash"},
	}))

	require.NoError(t, store.DeleteFile(ctx, "gone.go"))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Files)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 0, stats.Embeddings)

	assert.ErrorIs(t, store.DeleteFile(ctx, "gone.go"), types.ErrNotFound)
}

func TestInsertEmbeddings_DimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "dim.go", "package dim")

	docs := []*DocumentRecord{
		{ChunkIndex: 0, Content: "a", StartLine: 0, EndLine: 0, Kind: "code"},
		{ChunkIndex: 1, Content: "b", StartLine: 1, EndLine: 1, Kind: "code"},
	}
	require.NoError(t, store.ReplaceDocuments(ctx, file.ID, docs))

	// Mixed dimensions within one batch.
	err := store.InsertEmbeddings(ctx, []*EmbeddingRecord{
		{DocumentID: docs[0].ID, Vector: []float32{1, 0}},
		{DocumentID: docs[1].ID, Vector: []float32{1, 0, 0}},
	})
	assert.ErrorIs(t, err, types.ErrDimensionMatch)

	// A batch that disagrees with what the index already holds.
	require.NoError(t, store.InsertEmbeddings(ctx, []*EmbeddingRecord{
		{DocumentID: docs[0].ID, Vector: []float32{1, 0, 0}},
	}))
	err = store.InsertEmbeddings(ctx, []*EmbeddingRecord{
		{DocumentID: docs[1].ID, Vector: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, types.ErrDimensionMatch)
}

func TestSearchSimilar(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "vec.go", "package vec")

	docs := []*DocumentRecord{
		{ChunkIndex: 0, Content: "aligned", StartLine: 0, EndLine: 0, Kind: "code"},
		{ChunkIndex: 1, Content: "nearby", StartLine: 1, EndLine: 1, Kind: "code"},
		{ChunkIndex: 2, Content: "orthogonal", StartLine: 2, EndLine: 2, Kind: "code"},
	}
	require.NoError(t, store.ReplaceDocuments(ctx, file.ID, docs))

	require.NoError(t, store.InsertEmbeddings(ctx, []*EmbeddingRecord{
		{DocumentID: docs[0].ID, Vector: []float32{1, 0, 0}},
		{DocumentID: docs[1].ID, Vector: []float32{0.8, 0.6, 0}},
		{DocumentID: docs[2].ID, Vector: []float32{0, 0, 1}},
	}))

	results, err := store.SearchSimilar(ctx, []float32{1, 0, 0}, 10, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "aligned", results[0].Document.Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "nearby", results[1].Document.Content)
	assert.InDelta(t, 0.8, results[1].Similarity, 1e-6)

	// Threshold drops the weak matches.
	results, err = store.SearchSimilar(ctx, []float32{1, 0, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Limit truncates after ranking.
	results, err = store.SearchSimilar(ctx, []float32{1, 0, 0}, 1, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "aligned", results[0].Document.Content)
}

func TestSearchSubstring(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "sub.go", "package sub")

	docs := []*DocumentRecord{
		{ChunkIndex: 0, Content: "func HandleRequest(w http.ResponseWriter)", StartLine: 0, EndLine: 0, Kind: "code"},
		{ChunkIndex: 1, Content: "func handleOther()", StartLine: 1, EndLine: 1, Kind: "code"},
	}
	require.NoError(t, store.ReplaceDocuments(ctx, file.ID, docs))

	results, err := store.SearchSubstring(ctx, "HandleRequest", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].ChunkIndex)

	// Exact matching is case-sensitive.
	results, err = store.SearchSubstring(ctx, "handlerequest", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.SearchSubstring(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchSymbols_Scoring(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "sym.go", "package sym")

	require.NoError(t, store.ReplaceSymbols(ctx, file.ID, []types.Symbol{
		{Name: "Parse", Kind: types.KindFunction, Line: 10},
		{Name: "ParseConfig", Kind: types.KindFunction, Line: 20},
		{Name: "ReparseAll", Kind: types.KindFunction, Line: 30},
	}))

	matches, err := store.SearchSymbols(ctx, "Parse", 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "Parse", matches[0].Name)
	assert.Equal(t, 1.0, matches[0].Score)
	assert.Equal(t, "ParseConfig", matches[1].Name)
	assert.Equal(t, 0.8, matches[1].Score)
	assert.Equal(t, "ReparseAll", matches[2].Name)
	assert.Equal(t, 0.6, matches[2].Score)
}

func TestReplaceSymbols_Swaps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "swap.go", "package swap")

	require.NoError(t, store.ReplaceSymbols(ctx, file.ID, []types.Symbol{
		{Name: "Old", Kind: types.KindFunction, Line: 1},
	}))
	require.NoError(t, store.ReplaceSymbols(ctx, file.ID, []types.Symbol{
		{Name: "New", Kind: types.KindFunction, Line: 1},
	}))

	matches, err := store.SearchSymbols(ctx, "Old", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = store.SearchSymbols(ctx, "New", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	file := insertTestFile(t, store, "c.go", "package c")

	docs := []*DocumentRecord{{ChunkIndex: 0, Content: "x", StartLine: 0, EndLine: 0, Kind: "code"}}
	require.NoError(t, store.ReplaceDocuments(ctx, file.ID, docs))
	require.NoError(t, store.ReplaceSymbols(ctx, file.ID, []types.Symbol{
		{Name: "X", Kind: types.KindFunction, Line: 0},
	}))

	require.NoError(t, store.Clear(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Files)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 0, stats.Symbols)
}

func TestVectorSerialization_RoundTrip(t *testing.T) {
	original := []float32{0.1, -0.5, 1.0, 0}
	blob := SerializeVector(original)
	assert.Len(t, blob, len(original)*4)
	assert.Equal(t, original, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
