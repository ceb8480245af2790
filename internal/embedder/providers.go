package embedder

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"

	DefaultOpenAIModel = string(openai.SmallEmbedding3)

	OpenAIDimension = 1536
	HashDimension   = 256

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// OpenAIProvider generates embeddings through the OpenAI embeddings API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI-backed provider. A missing API key is
// a model-unavailable condition, not an inference failure: nothing this
// provider is asked to do can succeed without one.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not set", types.ErrModelUnavailable)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Embed calls the embeddings API with exponential backoff. The task is
// folded into the input text as a lightweight instruction prefix; OpenAI
// embedding models have no native asymmetric mode.
func (o *OpenAIProvider) Embed(ctx context.Context, text string, task Task) ([]float32, error) {
	if err := validateInput(text, task); err != nil {
		return nil, err
	}

	input := text
	if task == TaskSearchQuery {
		input = "query: " + text
	}

	vector, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() ([]float32, error) {
		resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{input},
			Model: openai.EmbeddingModel(o.model),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, errors.New("no embeddings returned")
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}

	return NormalizeVector(vector), nil
}

// classifyAPIError separates provider-level outages from per-request
// failures. Authentication and unknown-model responses mean no request can
// succeed; everything else is a failure of this inference call.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: %v", types.ErrModelUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", types.ErrInferenceFailed, err)
}

func (o *OpenAIProvider) Dimension() int {
	return OpenAIDimension
}

func (o *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Close() error {
	return nil
}

// HashProvider derives deterministic pseudo-embeddings from a content hash.
// It carries no semantic signal and exists so the pipeline runs end to end
// without external services: same text and task always produce the same
// unit vector.
type HashProvider struct{}

// NewHashProvider creates the offline fallback provider.
func NewHashProvider() *HashProvider {
	return &HashProvider{}
}

func (h *HashProvider) Embed(_ context.Context, text string, task Task) ([]float32, error) {
	if err := validateInput(text, task); err != nil {
		return nil, err
	}

	// Expand the seed hash into enough bytes by chaining, then map each
	// byte into [-1, 1) before normalizing.
	vector := make([]float32, HashDimension)
	seed := sha256.Sum256([]byte(string(task) + "\x00" + text))
	block := seed
	for i := 0; i < HashDimension; i++ {
		if i > 0 && i%len(seed) == 0 {
			block = sha256.Sum256(append(block[:], byte(i/len(seed))))
		}
		vector[i] = float32(block[i%len(block)])/128.0 - 1.0
	}

	return NormalizeVector(vector), nil
}

func (h *HashProvider) Dimension() int {
	return HashDimension
}

func (h *HashProvider) Name() string {
	return ProviderHash
}

func (h *HashProvider) Close() error {
	return nil
}
