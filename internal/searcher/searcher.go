package searcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tmacey/codesearch-mcp/internal/embedder"
	"github.com/tmacey/codesearch-mcp/internal/fusion"
	"github.com/tmacey/codesearch-mcp/internal/indexer"
	"github.com/tmacey/codesearch-mcp/internal/ranker"
	"github.com/tmacey/codesearch-mcp/internal/storage"
	"github.com/tmacey/codesearch-mcp/internal/textproc"
	"github.com/tmacey/codesearch-mcp/pkg/types"
)

const (
	// DefaultResultLimit is used when the caller does not specify one.
	DefaultResultLimit = 10

	// MaxResultLimit caps any requested result count.
	MaxResultLimit = 100

	// DefaultCandidateLimit bounds how many candidates each source feeds
	// into fusion.
	DefaultCandidateLimit = 50

	// DefaultQueryCacheSize bounds the fused-result cache.
	DefaultQueryCacheSize = 256

	snippetMaxLines = 3
	snippetMaxBytes = 240
)

// Config contains searcher configuration.
type Config struct {
	CandidateLimit int
	QueryCacheSize int
	Fusion         fusion.Config
}

// DefaultConfig returns the standard searcher configuration.
func DefaultConfig() Config {
	return Config{
		CandidateLimit: DefaultCandidateLimit,
		QueryCacheSize: DefaultQueryCacheSize,
		Fusion:         fusion.DefaultConfig(),
	}
}

// Status reports the state of the whole index for the status operation.
type Status struct {
	Store        *storage.Stats      `json:"store"`
	LexicalDocs  int                 `json:"lexical_documents"`
	LexicalTerms int                 `json:"lexical_terms"`
	EmbedCache   embedder.CacheStats `json:"embed_cache"`
	Provider     string              `json:"embedding_provider"`
	BuildMode    string              `json:"build_mode"`
}

// Searcher is the query-side API over the four retrieval sources, and the
// entry point the server layer calls for indexing, searching, clearing,
// and status.
type Searcher struct {
	engine   *ranker.Engine
	embedder *embedder.Cache
	store    storage.Store
	fuser    *fusion.Engine
	indexer  *indexer.Indexer

	candidateLimit int
	queryCache     *lru.Cache[string, []types.FusedResult]
}

// New wires a Searcher over shared components.
func New(engine *ranker.Engine, cache *embedder.Cache, store storage.Store, idx *indexer.Indexer, cfg Config) (*Searcher, error) {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = DefaultQueryCacheSize
	}
	// Fusion trims to the final limit after caching, so the fused list
	// kept per query holds up to the maximum a caller may request.
	cfg.Fusion.MaxResults = MaxResultLimit
	fuser, err := fusion.NewWithConfig(cfg.Fusion)
	if err != nil {
		return nil, err
	}
	queryCache, err := lru.New[string, []types.FusedResult](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: query cache size %d: %v", types.ErrInvalidConfig, cfg.QueryCacheSize, err)
	}
	return &Searcher{
		engine:         engine,
		embedder:       cache,
		store:          store,
		fuser:          fuser,
		indexer:        idx,
		candidateLimit: cfg.CandidateLimit,
		queryCache:     queryCache,
	}, nil
}

// NewDefault builds the whole retrieval stack over a storage path, using
// the embedding provider selected from the environment.
func NewDefault(dbPath string) (*Searcher, error) {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}
	cache, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	tok := textproc.New()
	engine := ranker.New(tok)
	idx := indexer.New(engine, cache, store, tok)
	return New(engine, cache, store, idx, DefaultConfig())
}

// Index runs the indexing pipeline and invalidates cached query results.
func (s *Searcher) Index(ctx context.Context, rootPath string, cfg indexer.Config) (*indexer.Statistics, error) {
	stats, err := s.indexer.IndexRoot(ctx, rootPath, cfg)
	if err != nil {
		return nil, err
	}
	s.queryCache.Purge()
	return stats, nil
}

// Clear drops the entire index and the query cache.
func (s *Searcher) Clear(ctx context.Context) error {
	if err := s.indexer.Clear(ctx); err != nil {
		return err
	}
	s.queryCache.Purge()
	return nil
}

// Stats reports the status of storage, the lexical engine, and the
// embedding cache.
func (s *Searcher) Stats(ctx context.Context) (*Status, error) {
	storeStats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Store:        storeStats,
		LexicalDocs:  s.engine.DocumentCount(),
		LexicalTerms: s.engine.TermCount(),
		EmbedCache:   s.embedder.Stats(),
		Provider:     s.embedder.Name(),
		BuildMode:    storage.BuildMode,
	}, nil
}

// Close releases the store and the embedding provider.
func (s *Searcher) Close() error {
	err := s.embedder.Close()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// Search runs all four retrieval sources in parallel and fuses their
// candidates. Sources fail independently: a broken embedding provider
// degrades the result to the remaining sources. Only when every source
// fails does the search itself fail.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]types.FusedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	if limit > MaxResultLimit {
		limit = MaxResultLimit
	}

	cacheKey := query
	if cached, ok := s.queryCache.Get(cacheKey); ok {
		return truncate(cached, limit), nil
	}

	var (
		inputs     fusion.Inputs
		wg         sync.WaitGroup
		sourceErrs = make([]error, 4)
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		inputs.Lexical = s.lexicalCandidates(ctx, query)
	}()
	go func() {
		defer wg.Done()
		inputs.Semantic, sourceErrs[1] = s.semanticCandidates(ctx, query)
	}()
	go func() {
		defer wg.Done()
		inputs.Exact, sourceErrs[2] = s.exactCandidates(ctx, query)
	}()
	go func() {
		defer wg.Done()
		inputs.Symbol, sourceErrs[3] = s.symbolCandidates(ctx, query)
	}()
	wg.Wait()

	// The in-memory lexical engine cannot fail as a source; it only
	// counts as unavailable when it holds nothing to search. If that and
	// every store-backed source are out, there is nothing to degrade to.
	failed := 0
	for _, err := range sourceErrs[1:] {
		if err != nil {
			failed++
		}
	}
	if failed == len(sourceErrs)-1 && s.engine.DocumentCount() == 0 {
		return nil, fmt.Errorf("%w: %v", types.ErrNoSourcesAvailable, errors.Join(sourceErrs...))
	}

	results := s.fuser.Fuse(inputs)
	s.queryCache.Add(cacheKey, results)
	return truncate(results, limit), nil
}

// lexicalCandidates queries the in-memory BM25 engine. It cannot fail, so
// it never contributes to the all-sources-down error. Snippets are hydrated
// from storage best-effort; a dead store just leaves them empty.
func (s *Searcher) lexicalCandidates(ctx context.Context, query string) []fusion.Candidate {
	matches := s.engine.Search(query, s.candidateLimit)
	candidates := make([]fusion.Candidate, len(matches))
	for i, m := range matches {
		var snippet string
		if doc, err := s.store.GetDocument(ctx, m.Doc.FilePath, m.Doc.ChunkIndex); err == nil {
			snippet = makeSnippet(doc.Content)
		}
		candidates[i] = fusion.Candidate{
			FilePath:  m.Doc.FilePath,
			StartLine: m.Doc.StartLine,
			EndLine:   m.Doc.EndLine,
			Score:     m.Score,
			Snippet:   snippet,
		}
	}
	return candidates
}

func (s *Searcher) semanticCandidates(ctx context.Context, query string) ([]fusion.Candidate, error) {
	vector, err := s.embedder.Embed(ctx, query, embedder.TaskSearchQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.store.SearchSimilar(ctx, vector, s.candidateLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	candidates := make([]fusion.Candidate, len(hits))
	for i, hit := range hits {
		candidates[i] = fusion.Candidate{
			FilePath:  hit.Document.FilePath,
			StartLine: hit.Document.StartLine,
			EndLine:   hit.Document.EndLine,
			Score:     hit.Similarity,
			Snippet:   makeSnippet(hit.Document.Content),
		}
	}
	return candidates, nil
}

func (s *Searcher) exactCandidates(ctx context.Context, query string) ([]fusion.Candidate, error) {
	docs, err := s.store.SearchSubstring(ctx, query, s.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	candidates := make([]fusion.Candidate, len(docs))
	for i, doc := range docs {
		candidates[i] = fusion.Candidate{
			FilePath:  doc.FilePath,
			StartLine: doc.StartLine,
			EndLine:   doc.EndLine,
			Score:     1.0,
			Snippet:   makeSnippet(doc.Content),
		}
	}
	return candidates, nil
}

func (s *Searcher) symbolCandidates(ctx context.Context, query string) ([]fusion.Candidate, error) {
	matches, err := s.store.SearchSymbols(ctx, query, s.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("symbol search: %w", err)
	}
	candidates := make([]fusion.Candidate, len(matches))
	for i, m := range matches {
		candidates[i] = fusion.Candidate{
			FilePath:  m.FilePath,
			StartLine: m.Line,
			EndLine:   m.Line,
			Score:     m.Score,
			Snippet:   m.Name,
		}
	}
	return candidates, nil
}

func truncate(results []types.FusedResult, limit int) []types.FusedResult {
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]types.FusedResult, len(results))
	copy(out, results)
	return out
}

// makeSnippet trims content to a few leading lines for display.
func makeSnippet(content string) string {
	lines := strings.SplitN(content, "\n", snippetMaxLines+1)
	if len(lines) > snippetMaxLines {
		lines = lines[:snippetMaxLines]
	}
	snippet := strings.Join(lines, "\n")
	if len(snippet) > snippetMaxBytes {
		snippet = snippet[:snippetMaxBytes]
	}
	return snippet
}
