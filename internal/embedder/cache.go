package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// DefaultCacheCapacity bounds the embedding cache when no capacity is given.
const DefaultCacheCapacity = 4096

// Cache wraps a Provider with a bounded LRU of computed vectors and
// request coalescing: concurrent lookups for the same text and task share
// one provider call, and repeated lookups return bit-identical vectors.
//
// The underlying provider is constructed lazily on the first request that
// misses the cache, so building a Cache never touches the network. A failed
// construction is remembered and returned to every subsequent request.
type Cache struct {
	capacity int
	init     func() (Provider, error)

	once     sync.Once
	initDone atomic.Bool
	provider Provider
	initErr  error

	group singleflight.Group
	lru   *lru.Cache[string, []float32]

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports cache occupancy and effectiveness.
type CacheStats struct {
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
}

// NewCache creates a caching layer over the provider produced by init.
func NewCache(capacity int, init func() (Provider, error)) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	store, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: cache capacity %d: %v", types.ErrInvalidConfig, capacity, err)
	}
	return &Cache{
		capacity: capacity,
		init:     init,
		lru:      store,
	}, nil
}

// cacheKey derives the lookup key. Task is part of the key: the same text
// embedded as a query and as a document are different vectors.
func cacheKey(text string, task Task) string {
	sum := sha256.Sum256([]byte(string(task) + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for (text, task) or computes it through
// the provider. Callers receive a private copy so mutations never pollute
// the cache.
func (c *Cache) Embed(ctx context.Context, text string, task Task) ([]float32, error) {
	if err := validateInput(text, task); err != nil {
		return nil, err
	}

	key := cacheKey(text, task)
	if vec, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return copyVector(vec), nil
	}
	c.misses.Add(1)

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have filled the entry while this one
		// waited on the singleflight lock.
		if vec, ok := c.lru.Get(key); ok {
			return vec, nil
		}

		provider, err := c.getProvider()
		if err != nil {
			return nil, err
		}
		vec, err := provider.Embed(ctx, text, task)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}

	return copyVector(result.([]float32)), nil
}

func (c *Cache) getProvider() (Provider, error) {
	c.once.Do(func() {
		c.provider, c.initErr = c.init()
		// Publishes provider and initErr to readers that must not force
		// construction themselves (Name, Close).
		c.initDone.Store(true)
	})
	return c.provider, c.initErr
}

// Dimension reports the wrapped provider's dimension, forcing construction
// if it has not happened yet. Returns 0 when the provider is unavailable.
func (c *Cache) Dimension() int {
	provider, err := c.getProvider()
	if err != nil {
		return 0
	}
	return provider.Dimension()
}

// Name returns the wrapped provider's name without forcing construction.
func (c *Cache) Name() string {
	if c.initDone.Load() && c.provider != nil {
		return c.provider.Name()
	}
	return "uninitialized"
}

// Stats returns a point-in-time snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Size:     c.lru.Len(),
		Capacity: c.capacity,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}
}

// Purge empties the cache without touching the provider.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Close releases the wrapped provider if it was ever constructed.
func (c *Cache) Close() error {
	if c.initDone.Load() && c.provider != nil {
		return c.provider.Close()
	}
	return nil
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
