package searcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmacey/codesearch-mcp/internal/embedder"
	"github.com/tmacey/codesearch-mcp/internal/indexer"
	"github.com/tmacey/codesearch-mcp/internal/ranker"
	"github.com/tmacey/codesearch-mcp/internal/storage"
	"github.com/tmacey/codesearch-mcp/internal/textproc"
	"github.com/tmacey/codesearch-mcp/pkg/types"
)

type harness struct {
	searcher *Searcher
	store    *storage.SQLiteStore
	engine   *ranker.Engine
	root     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cache, err := embedder.New(embedder.Config{Provider: embedder.ProviderHash})
	require.NoError(t, err)

	tok := textproc.New()
	engine := ranker.New(tok)
	idx := indexer.New(engine, cache, store, tok)

	s, err := New(engine, cache, store, idx, DefaultConfig())
	require.NoError(t, err)

	return &harness{searcher: s, store: store, engine: engine, root: t.TempDir()}
}

func (h *harness) writeFile(t *testing.T, relPath, content string) {
	t.Helper()
	path := filepath.Join(h.root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (h *harness) index(t *testing.T) {
	t.Helper()
	_, err := h.searcher.Index(context.Background(), h.root, indexer.DefaultConfig())
	require.NoError(t, err)
}

const serverSrc = `package server

func HandleRequest(path string) string {
	return resolve(path)
}

func resolve(path string) string {
	return path
}
`

const clientSrc = `package client

func sendRequest(url string) error {
	return nil
}
`

func TestSearch_EndToEnd(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "server.go", serverSrc)
	h.writeFile(t, "client.go", clientSrc)
	h.index(t)

	results, err := h.searcher.Search(context.Background(), "HandleRequest", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "server.go", top.FilePath)
	// The definition is found by the exact, lexical, and symbol sources
	// at once and keeps all three provenance flags.
	assert.True(t, top.Match.Has(types.MatchExact))
	assert.True(t, top.Match.Has(types.MatchLexical))
	assert.True(t, top.Match.Has(types.MatchSymbol))
}

func TestSearch_EmptyQuery(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "a.go", serverSrc)
	h.index(t)

	results, err := h.searcher.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_LimitClamping(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "a.go", serverSrc)
	h.index(t)
	ctx := context.Background()

	// Zero falls back to the default, oversized requests are capped;
	// neither is an error.
	_, err := h.searcher.Search(ctx, "request", 0)
	require.NoError(t, err)
	_, err = h.searcher.Search(ctx, "request", 100000)
	require.NoError(t, err)
}

func TestSearch_CacheInvalidatedByIndex(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "a.go", serverSrc)
	h.index(t)
	ctx := context.Background()

	first, err := h.searcher.Search(ctx, "resolve", 10)
	require.NoError(t, err)
	again, err := h.searcher.Search(ctx, "resolve", 10)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// New content must be visible after a re-index.
	h.writeFile(t, "b.go", "package other\n\nfunc resolveConflict() {}\n")
	h.index(t)

	updated, err := h.searcher.Search(ctx, "resolve", 10)
	require.NoError(t, err)

	var foundNew bool
	for _, r := range updated {
		if r.FilePath == "b.go" {
			foundNew = true
		}
	}
	assert.True(t, foundNew)
}

func TestSearch_LexicalResultsCarrySnippet(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "server.go", serverSrc)

	cfg := indexer.DefaultConfig()
	cfg.SkipEmbedding = true
	_, err := h.searcher.Index(context.Background(), h.root, cfg)
	require.NoError(t, err)

	// Tokenized terms match BM25 but neither the literal substring nor any
	// symbol name, so the hit is lexical-only.
	results, err := h.searcher.Search(context.Background(), "handle request", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, types.MatchLexical, top.Match)
	assert.NotEmpty(t, top.Snippet)
	assert.Contains(t, serverSrc, top.Snippet)
}

func TestSearch_DegradesToLexicalWhenStoreFails(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "a.go", serverSrc)
	h.index(t)

	// A dead store takes down the exact, semantic, and symbol sources.
	require.NoError(t, h.store.Close())

	results, err := h.searcher.Search(context.Background(), "HandleRequest", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, types.MatchLexical, results[0].Match)
}

func TestSearch_AllSourcesUnavailable(t *testing.T) {
	h := newHarness(t)
	// Nothing indexed, and the store is gone.
	require.NoError(t, h.store.Close())

	_, err := h.searcher.Search(context.Background(), "anything", 10)
	assert.ErrorIs(t, err, types.ErrNoSourcesAvailable)
}

func TestClear_EmptiesResults(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "a.go", serverSrc)
	h.index(t)
	ctx := context.Background()

	results, err := h.searcher.Search(ctx, "HandleRequest", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	require.NoError(t, h.searcher.Clear(ctx))

	results, err = h.searcher.Search(ctx, "HandleRequest", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "a.go", serverSrc)
	h.index(t)

	status, err := h.searcher.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, status.Store.Files)
	assert.Greater(t, status.LexicalDocs, 0)
	assert.Greater(t, status.LexicalTerms, 0)
	assert.Equal(t, embedder.ProviderHash, status.Provider)
	assert.Equal(t, storage.BuildMode, status.BuildMode)
}
