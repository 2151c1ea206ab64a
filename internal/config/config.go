package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/tome-labs/tome/internal/chunker"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/embedding"
	"github.com/tome-labs/tome/internal/vectorstore"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	VectorBackend string `envconfig:"VECTOR_BACKEND" default:"pgvector"`

	EmbeddingBackend    string `envconfig:"EMBEDDING_BACKEND" default:"openai"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	ChatModel     string `envconfig:"CHAT_MODEL"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	WorkerInterval time.Duration `envconfig:"WORKER_INTERVAL" default:"3s"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TOME", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects configurations the services would later refuse anyway,
// so misconfiguration fails at startup rather than on the first request.
func (c *Config) Validate() error {
	if err := chunker.ValidateConfig(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}

	switch c.VectorBackend {
	case vectorstore.BackendPgvector, vectorstore.BackendMemory:
	default:
		return domain.ErrUnknownVectorBackend
	}

	switch c.EmbeddingBackend {
	case embedding.BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return domain.ErrMissingProviderAPIKey
		}
	case embedding.BackendLocal:
	default:
		return domain.ErrUnknownProvider
	}

	return nil
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// EmbeddingConfig maps the environment to the provider factory input.
func (c *Config) EmbeddingConfig() embedding.Config {
	return embedding.Config{
		Backend:    c.EmbeddingBackend,
		APIKey:     c.OpenAIAPIKey,
		BaseURL:    c.OpenAIBaseURL,
		Model:      c.EmbeddingModel,
		Dimensions: c.EmbeddingDimensions,
	}
}

// VectorConfig maps the environment to the store factory input. The
// dimension follows the embedding configuration so the store rejects
// vectors the provider could not have produced.
func (c *Config) VectorConfig() vectorstore.Config {
	dimensions := c.EmbeddingDimensions
	if dimensions <= 0 && c.EmbeddingModel != "" {
		dimensions = embedding.KnownModelDimension(c.EmbeddingModel)
	}
	if dimensions <= 0 && c.EmbeddingBackend == embedding.BackendOpenAI {
		dimensions = embedding.KnownModelDimension(embedding.DefaultEmbeddingModel)
	}
	if dimensions <= 0 && c.EmbeddingBackend == embedding.BackendLocal {
		dimensions = embedding.DefaultLocalDimensions
	}
	return vectorstore.Config{
		Backend:    c.VectorBackend,
		Dimensions: dimensions,
	}
}
