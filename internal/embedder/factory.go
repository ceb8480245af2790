package embedder

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// Environment variables consulted by NewFromEnv.
const (
	EnvProvider      = "CODESEARCH_EMBEDDING_PROVIDER"
	EnvModel         = "CODESEARCH_EMBEDDING_MODEL"
	EnvCacheCapacity = "CODESEARCH_EMBED_CACHE_SIZE"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
)

// Config holds explicit embedder configuration.
type Config struct {
	Provider      string
	APIKey        string
	Model         string
	CacheCapacity int
}

// NewFromEnv builds the cached embedding provider from environment
// variables. Priority:
//  1. CODESEARCH_EMBEDDING_PROVIDER (openai, hash)
//  2. OPENAI_API_KEY present implies openai
//  3. Fallback to the deterministic hash provider
func NewFromEnv() (*Cache, error) {
	cfg := Config{
		Provider: os.Getenv(EnvProvider),
		APIKey:   os.Getenv(EnvOpenAIAPIKey),
		Model:    os.Getenv(EnvModel),
	}
	if raw := os.Getenv(EnvCacheCapacity); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not an integer", types.ErrInvalidConfig, EnvCacheCapacity, raw)
		}
		cfg.CacheCapacity = capacity
	}

	if cfg.Provider == "" {
		if cfg.APIKey != "" {
			cfg.Provider = ProviderOpenAI
		} else {
			cfg.Provider = ProviderHash
		}
	}
	return New(cfg)
}

// New builds the cached embedding provider from explicit configuration.
// Provider construction itself is deferred until the first embedding
// request misses the cache.
func New(cfg Config) (*Cache, error) {
	var init func() (Provider, error)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		init = func() (Provider, error) {
			return NewOpenAIProvider(cfg.APIKey, cfg.Model)
		}
	case ProviderHash:
		init = func() (Provider, error) {
			return NewHashProvider(), nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", types.ErrInvalidConfig, cfg.Provider)
	}

	return NewCache(cfg.CacheCapacity, init)
}

// DetectProvider returns the provider NewFromEnv would select.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderHash
}
