package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tome-labs/tome/internal/domain"
)

const (
	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// modelDimensions maps known embedding models to their vector length.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"BAAI/bge-large-zh-v1.5": 1024,
	"BAAI/bge-m3":            1024,
}

// KnownModelDimension returns the dimension for a known model name, or 0.
func KnownModelDimension(model string) int {
	return modelDimensions[model]
}

// embeddingAPI is the slice of the OpenAI client the provider needs,
// declared here so tests can substitute a fake.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIProvider generates embeddings through any OpenAI-compatible API.
type OpenAIProvider struct {
	api        embeddingAPI
	model      string
	dimensions int
}

// NewOpenAIProvider creates a provider for cfg. BaseURL may point at any
// OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg Config) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = modelDimensions[model]
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		api:        openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: dimensions,
	}
}

func (p *OpenAIProvider) Dimension() int    { return p.dimensions }
func (p *OpenAIProvider) ModelName() string { return p.model }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// the API rejects empty strings; substitute a single space so the
	// output stays order-preserving with one vector per input
	inputs := make([]string, len(texts))
	for i, t := range texts {
		if t == "" {
			t = " "
		}
		inputs[i] = t
	}

	resp, err := p.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, domain.NewProviderError("embedding request failed", err)
	}

	if len(resp.Data) != len(inputs) {
		return nil, domain.NewProviderError(
			fmt.Sprintf("embedding response returned %d vectors for %d inputs", len(resp.Data), len(inputs)), nil)
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, domain.NewProviderError("embedding response index out of range", nil)
		}
		if p.dimensions > 0 && len(item.Embedding) != p.dimensions {
			return nil, domain.NewProviderError(
				fmt.Sprintf("embedding has %d dimensions, expected %d", len(item.Embedding), p.dimensions), nil)
		}
		vectors[item.Index] = item.Embedding
	}

	return vectors, nil
}
