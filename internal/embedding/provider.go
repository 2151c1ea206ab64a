// Package embedding converts text into fixed-dimension vectors behind a
// provider abstraction selected at startup.
package embedding

import (
	"context"

	"github.com/tome-labs/tome/internal/domain"
)

// Provider generates embeddings. All implementations in a deployment must
// produce vectors of the same dimensionality; the serve wiring checks
// Dimension against the vector store's configured dimension at startup.
type Provider interface {
	// Embed generates an embedding for a single text. Empty input is not an
	// error; providers return a valid vector for it.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one embedding per input, order-preserving.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed length of produced vectors.
	Dimension() int

	// ModelName identifies the underlying model.
	ModelName() string
}

// Backend names for the factory
const (
	BackendOpenAI = "openai"
	BackendLocal  = "local"
)

// Config selects and parameterizes a provider.
type Config struct {
	Backend    string
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// New builds the provider named by cfg.Backend.
func New(cfg Config) (Provider, error) {
	switch cfg.Backend {
	case BackendOpenAI:
		if cfg.APIKey == "" {
			return nil, domain.ErrMissingProviderAPIKey
		}
		return NewOpenAIProvider(cfg), nil
	case BackendLocal:
		return NewLocalProvider(cfg.Dimensions), nil
	default:
		return nil, domain.ErrUnknownProvider
	}
}
