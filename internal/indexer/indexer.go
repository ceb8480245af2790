package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tmacey/codesearch-mcp/internal/chunker"
	"github.com/tmacey/codesearch-mcp/internal/embedder"
	"github.com/tmacey/codesearch-mcp/internal/ranker"
	"github.com/tmacey/codesearch-mcp/internal/storage"
	"github.com/tmacey/codesearch-mcp/internal/symbols"
	"github.com/tmacey/codesearch-mcp/internal/textproc"
	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// ErrIndexingInProgress is returned when an index run is requested while
// another one holds the lock.
var ErrIndexingInProgress = errors.New("indexing already in progress")

const (
	// DefaultMaxFileSize skips files larger than this many bytes.
	DefaultMaxFileSize = 1 << 20

	// symbolTokenWeight boosts a chunk's own symbol names in lexical
	// scoring so a query naming a function ranks its definition above
	// chunks that merely call it.
	symbolTokenWeight = 2.0
)

// Config contains configuration for an index run.
type Config struct {
	Workers       int   // Concurrent file workers (default: runtime.NumCPU())
	IncludeTests  bool  // Index _test.go files (default: true via DefaultConfig)
	IncludeVendor bool  // Index vendor directories (default: false)
	MaxFileSize   int64 // Per-file size ceiling in bytes (default: DefaultMaxFileSize)
	SkipEmbedding bool  // Build only the lexical and symbol indexes
}

// DefaultConfig returns the standard index run configuration.
func DefaultConfig() Config {
	return Config{
		Workers:      runtime.NumCPU(),
		IncludeTests: true,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// Statistics describes the outcome of one index run.
type Statistics struct {
	FilesIndexed     int           `json:"files_indexed"`
	FilesSkipped     int           `json:"files_skipped"`
	FilesFailed      int           `json:"files_failed"`
	ChunksCreated    int           `json:"chunks_created"`
	SymbolsExtracted int           `json:"symbols_extracted"`
	EmbeddingsStored int           `json:"embeddings_stored"`
	Duration         time.Duration `json:"duration"`
	ErrorMessages    []string      `json:"errors,omitempty"`
}

// Indexer runs the indexing pipeline: discover files, chunk, tokenize into
// the lexical engine, embed into the vector store, and extract symbols.
type Indexer struct {
	chunker   *chunker.Chunker
	tokenizer *textproc.Tokenizer
	extractor *symbols.Extractor
	engine    *ranker.Engine
	embedder  *embedder.Cache
	store     storage.Store

	lock indexLock

	// Set when the embedding provider reports it can serve no request;
	// remaining files keep indexing without vectors.
	embedUnavailable atomic.Bool
}

// New creates an Indexer over the shared engine, embedder, and store.
func New(engine *ranker.Engine, cache *embedder.Cache, store storage.Store, tok *textproc.Tokenizer) *Indexer {
	return &Indexer{
		chunker:   chunker.New(),
		tokenizer: tok,
		extractor: symbols.New(),
		engine:    engine,
		embedder:  cache,
		store:     store,
	}
}

// IndexRoot indexes every supported file under rootPath. Only one run may
// be active at a time; a concurrent call fails with ErrIndexingInProgress.
// Per-file failures are collected, not fatal.
func (idx *Indexer) IndexRoot(ctx context.Context, rootPath string, cfg Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	idx.embedUnavailable.Store(false)

	start := time.Now()
	files, err := discoverFiles(rootPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	var (
		indexed, skipped, failed     atomic.Int32
		chunks, symCount, embeddings atomic.Int32
		mu                           sync.Mutex
		errorMessages                []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, filePath := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result, err := idx.indexFile(gctx, rootPath, filePath, cfg)
			if err != nil {
				failed.Add(1)
				mu.Lock()
				errorMessages = append(errorMessages, fmt.Sprintf("%s: %v", filePath, err))
				mu.Unlock()
				return nil // Keep indexing other files
			}
			if result.skipped {
				skipped.Add(1)
				return nil
			}
			indexed.Add(1)
			chunks.Add(int32(result.chunks))
			symCount.Add(int32(result.symbols))
			embeddings.Add(int32(result.embeddings))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Statistics{
		FilesIndexed:     int(indexed.Load()),
		FilesSkipped:     int(skipped.Load()),
		FilesFailed:      int(failed.Load()),
		ChunksCreated:    int(chunks.Load()),
		SymbolsExtracted: int(symCount.Load()),
		EmbeddingsStored: int(embeddings.Load()),
		Duration:         time.Since(start),
		ErrorMessages:    errorMessages,
	}, nil
}

type fileResult struct {
	skipped    bool
	chunks     int
	symbols    int
	embeddings int
}

// indexFile runs the pipeline for one file. The lexical index swap is
// atomic per file and storage replacement is transactional, so a searcher
// never observes a half-indexed file.
func (idx *Indexer) indexFile(ctx context.Context, rootPath, filePath string, cfg Config) (*fileResult, error) {
	relPath, err := filepath.Rel(rootPath, filePath)
	if err != nil {
		return nil, err
	}
	relPath = filepath.ToSlash(relPath)

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(content)

	// Unchanged files are skipped wholesale.
	if existing, err := idx.store.GetFileByPath(ctx, relPath); err == nil && existing.ContentHash == hash {
		return &fileResult{skipped: true}, nil
	}

	text := string(content)
	language := chunker.LanguageFor(relPath)
	fileChunks := idx.chunker.Chunk(text, chunker.StrategyFor(relPath))

	extracted, err := idx.extractor.Extract(relPath, text)
	if err != nil {
		return nil, fmt.Errorf("extract symbols: %w", err)
	}

	file := &storage.FileRecord{
		FilePath:    relPath,
		ContentHash: hash,
		ModTime:     info.ModTime(),
		SizeBytes:   info.Size(),
		Language:    language,
	}
	if err := idx.store.UpsertFile(ctx, file); err != nil {
		return nil, err
	}

	docs := make([]*storage.DocumentRecord, len(fileChunks))
	for i, ch := range fileChunks {
		docs[i] = &storage.DocumentRecord{
			ChunkIndex: i,
			Content:    ch.Content,
			StartLine:  ch.StartLine,
			EndLine:    ch.EndLine,
			Kind:       string(ch.Kind),
		}
	}
	if err := idx.store.ReplaceDocuments(ctx, file.ID, docs); err != nil {
		return nil, err
	}
	if err := idx.store.ReplaceSymbols(ctx, file.ID, extracted); err != nil {
		return nil, err
	}

	idx.engine.ReplaceFile(relPath, idx.buildDocuments(relPath, language, fileChunks, extracted))

	result := &fileResult{chunks: len(fileChunks), symbols: len(extracted)}
	if !cfg.SkipEmbedding && !idx.embedUnavailable.Load() {
		stored, err := idx.embedChunks(ctx, docs)
		if err != nil {
			return result, err
		}
		result.embeddings = stored
	}
	return result, nil
}

// buildDocuments tokenizes chunks for the lexical engine, boosting tokens
// of symbol names declared inside each chunk's line range.
func (idx *Indexer) buildDocuments(relPath, language string, fileChunks []types.Chunk, extracted []types.Symbol) []*types.IndexedDocument {
	docs := make([]*types.IndexedDocument, len(fileChunks))
	for i, ch := range fileChunks {
		tokens := idx.tokenizer.Tokenize(ch.Content)
		for _, sym := range extracted {
			if sym.Line < ch.StartLine || sym.Line > ch.EndLine {
				continue
			}
			tokens = append(tokens, idx.tokenizer.TokenizeWithWeight(sym.Name, symbolTokenWeight)...)
		}
		docs[i] = &types.IndexedDocument{
			ID:         types.DocumentID(relPath, i),
			FilePath:   relPath,
			ChunkIndex: i,
			Tokens:     tokens,
			StartLine:  ch.StartLine,
			EndLine:    ch.EndLine,
			Language:   language,
		}
	}
	return docs
}

// embedChunks computes and stores document embeddings. A provider that can
// serve no request at all disables embedding for the rest of the run; the
// lexical and symbol sources keep the index usable.
func (idx *Indexer) embedChunks(ctx context.Context, docs []*storage.DocumentRecord) (int, error) {
	batch := make([]*storage.EmbeddingRecord, 0, len(docs))
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		vector, err := idx.embedder.Embed(ctx, doc.Content, embedder.TaskSearchDocument)
		if err != nil {
			if errors.Is(err, types.ErrModelUnavailable) {
				idx.embedUnavailable.Store(true)
				return 0, nil
			}
			return 0, fmt.Errorf("embed chunk %d: %w", doc.ChunkIndex, err)
		}
		batch = append(batch, &storage.EmbeddingRecord{
			DocumentID: doc.ID,
			Vector:     vector,
			Provider:   idx.embedder.Name(),
		})
	}
	if err := idx.store.InsertEmbeddings(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// Clear drops the whole index: storage rows, the lexical engine, and the
// embedding cache.
func (idx *Indexer) Clear(ctx context.Context) error {
	if !idx.lock.TryAcquire() {
		return ErrIndexingInProgress
	}
	defer idx.lock.Release()

	if err := idx.store.Clear(ctx); err != nil {
		return err
	}
	idx.engine.Clear()
	idx.embedder.Purge()
	return nil
}

// skipDirs are directory names never worth indexing.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	"__pycache__":  {},
	"target":       {},
	"dist":         {},
}

// discoverFiles walks rootPath collecting indexable files in deterministic
// order: anything with a recognized language plus markdown.
func discoverFiles(rootPath string, cfg Config) ([]string, error) {
	var files []string
	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != rootPath && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if _, skip := skipDirs[name]; skip {
				return filepath.SkipDir
			}
			if !cfg.IncludeVendor && name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !indexable(path) {
			return nil
		}
		if !cfg.IncludeTests && strings.HasSuffix(path, "_test.go") {
			return nil
		}
		if info.Size() > cfg.MaxFileSize {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func indexable(path string) bool {
	if chunker.LanguageFor(path) != "" {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}
