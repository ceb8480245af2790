package ranker

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tmacey/codesearch-mcp/internal/textproc"
	"github.com/tmacey/codesearch-mcp/pkg/types"
)

const (
	// DefaultK1 controls term-frequency saturation.
	DefaultK1 = 1.2

	// DefaultB controls document-length normalization.
	DefaultB = 0.75

	// idfFloor replaces non-positive raw IDF values. Terms present in a
	// majority of documents keep a small positive contribution instead of
	// flipping the ranking sign.
	idfFloor = 1e-4
)

// Config contains BM25 scoring parameters.
type Config struct {
	K1 float64 // Term-frequency saturation, must be > 0
	B  float64 // Length normalization, must be in [0, 1]
}

// Match is one scored document from a lexical search.
type Match struct {
	DocID string
	Score float64
	Doc   DocMeta
}

// DocMeta is the per-document metadata retained by the index, enough to map
// a match back to its file location without consulting storage.
type DocMeta struct {
	FilePath   string
	ChunkIndex int
	StartLine  int
	EndLine    int
	Language   string
	Length     int // Token count, unweighted
}

// Engine maintains an inverted index over tokenized chunks and scores
// queries against it with BM25. All methods are safe for concurrent use:
// readers share an RLock, mutations take the write lock, and a reader
// always sees a document either fully present or fully absent.
type Engine struct {
	tokenizer *textproc.Tokenizer
	k1        float64
	b         float64

	mu       sync.RWMutex
	postings map[string]map[string]float64 // term -> docID -> weighted tf
	docs     map[string]DocMeta
	byFile   map[string][]string // filePath -> docIDs, for atomic re-index
	totalLen int
}

// New creates an Engine with default BM25 parameters.
func New(tok *textproc.Tokenizer) *Engine {
	e, _ := NewWithConfig(tok, Config{K1: DefaultK1, B: DefaultB})
	return e
}

// NewWithConfig creates an Engine, rejecting malformed parameters at
// construction rather than surfacing them during scoring.
func NewWithConfig(tok *textproc.Tokenizer, cfg Config) (*Engine, error) {
	if cfg.K1 <= 0 {
		return nil, fmt.Errorf("%w: k1 must be positive, got %g", types.ErrInvalidConfig, cfg.K1)
	}
	if cfg.B < 0 || cfg.B > 1 {
		return nil, fmt.Errorf("%w: b must be in [0,1], got %g", types.ErrInvalidConfig, cfg.B)
	}
	return &Engine{
		tokenizer: tok,
		k1:        cfg.K1,
		b:         cfg.B,
		postings:  make(map[string]map[string]float64),
		docs:      make(map[string]DocMeta),
		byFile:    make(map[string][]string),
	}, nil
}

// AddDocument indexes one document. A document with zero tokens is accepted
// and simply contributes zero score to every query. Re-adding an existing ID
// replaces the previous posting entries.
func (e *Engine) AddDocument(doc *types.IndexedDocument) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addLocked(doc)
}

// RemoveDocument drops a document from the index. Returns false when the ID
// is unknown.
func (e *Engine) RemoveDocument(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeLocked(id)
}

// ReplaceFile atomically swaps every document of filePath for the new set.
// Concurrent readers observe either the old chunk set or the new one, never
// a mix; this is what makes per-file re-indexing atomic.
func (e *Engine) ReplaceFile(filePath string, docs []*types.IndexedDocument) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.byFile[filePath] {
		e.removeLocked(id)
	}
	for _, doc := range docs {
		e.addLocked(doc)
	}
}

func (e *Engine) addLocked(doc *types.IndexedDocument) {
	if _, exists := e.docs[doc.ID]; exists {
		e.removeLocked(doc.ID)
	}

	e.docs[doc.ID] = DocMeta{
		FilePath:   doc.FilePath,
		ChunkIndex: doc.ChunkIndex,
		StartLine:  doc.StartLine,
		EndLine:    doc.EndLine,
		Language:   doc.Language,
		Length:     len(doc.Tokens),
	}
	e.byFile[doc.FilePath] = append(e.byFile[doc.FilePath], doc.ID)
	e.totalLen += len(doc.Tokens)

	for _, tok := range doc.Tokens {
		weight := tok.Weight
		if weight <= 0 {
			weight = 1.0
		}
		byDoc, ok := e.postings[tok.Text]
		if !ok {
			byDoc = make(map[string]float64)
			e.postings[tok.Text] = byDoc
		}
		byDoc[doc.ID] += weight
	}
}

func (e *Engine) removeLocked(id string) bool {
	meta, ok := e.docs[id]
	if !ok {
		return false
	}
	delete(e.docs, id)
	e.totalLen -= meta.Length

	ids := e.byFile[meta.FilePath]
	for i, existing := range ids {
		if existing == id {
			e.byFile[meta.FilePath] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(e.byFile[meta.FilePath]) == 0 {
		delete(e.byFile, meta.FilePath)
	}

	for term, byDoc := range e.postings {
		if _, present := byDoc[id]; present {
			delete(byDoc, id)
			if len(byDoc) == 0 {
				delete(e.postings, term)
			}
		}
	}
	return true
}

// Search scores the query against the index and returns up to limit matches
// in descending score order. An empty or whitespace-only query returns an
// empty result without error.
func (e *Engine) Search(query string, limit int) []Match {
	terms := e.tokenizer.Terms(query)
	if len(terms) == 0 {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.docs)
	if n == 0 {
		return nil
	}
	avgdl := float64(e.totalLen) / float64(n)

	scores := make(map[string]float64)
	for _, term := range terms {
		byDoc, ok := e.postings[term]
		if !ok {
			continue
		}
		idf := e.idf(len(byDoc), n)
		for docID, tf := range byDoc {
			docLen := float64(e.docs[docID].Length)
			norm := 1 - e.b + e.b*(docLen/avgdl)
			scores[docID] += idf * (tf * (e.k1 + 1)) / (tf + e.k1*norm)
		}
	}

	matches := make([]Match, 0, len(scores))
	for docID, score := range scores {
		matches = append(matches, Match{DocID: docID, Score: score, Doc: e.docs[docID]})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].DocID < matches[j].DocID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// idf computes ln((N - df + 0.5) / (df + 0.5)), floored at a small positive
// epsilon. For a fixed corpus the result is non-increasing in df, so a rarer
// term never scores below a more common one.
func (e *Engine) idf(df, n int) float64 {
	raw := math.Log((float64(n) - float64(df) + 0.5) / (float64(df) + 0.5))
	if raw <= 0 {
		return idfFloor
	}
	return raw
}

// Lookup returns the metadata for an indexed document.
func (e *Engine) Lookup(id string) (DocMeta, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	meta, ok := e.docs[id]
	return meta, ok
}

// DocumentCount returns the number of indexed documents.
func (e *Engine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// TermCount returns the number of distinct terms in the index.
func (e *Engine) TermCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.postings)
}

// Clear drops the entire index.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.postings = make(map[string]map[string]float64)
	e.docs = make(map[string]DocMeta)
	e.byFile = make(map[string][]string)
	e.totalLen = 0
}
