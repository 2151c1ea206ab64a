package embedding

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingAPI struct {
	resp openai.EmbeddingResponse
	err  error

	lastInput []string
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if r, ok := req.(openai.EmbeddingRequest); ok {
		if inputs, ok := r.Input.([]string); ok {
			f.lastInput = inputs
		}
	}
	return f.resp, f.err
}

func newTestProvider(api embeddingAPI, dims int) *OpenAIProvider {
	return &OpenAIProvider{api: api, model: DefaultEmbeddingModel, dimensions: dims}
}

func TestOpenAIProviderBatchOrder(t *testing.T) {
	api := &fakeEmbeddingAPI{
		resp: openai.EmbeddingResponse{
			Data: []openai.Embedding{
				// out-of-order response indices must still land in order
				{Index: 1, Embedding: []float32{0, 1}},
				{Index: 0, Embedding: []float32{1, 0}},
			},
		},
	}
	p := newTestProvider(api, 2)

	vectors, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestOpenAIProviderEmptyTextSubstituted(t *testing.T) {
	api := &fakeEmbeddingAPI{
		resp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 0, Embedding: []float32{1, 0}}},
		},
	}
	p := newTestProvider(api, 2)

	_, err := p.EmbedBatch(context.Background(), []string{""})
	require.NoError(t, err)
	require.Equal(t, []string{" "}, api.lastInput)
}

func TestOpenAIProviderAPIFailureIsProviderError(t *testing.T) {
	api := &fakeEmbeddingAPI{err: errors.New("rate limited")}
	p := newTestProvider(api, 2)

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsProviderError(err))
}

func TestOpenAIProviderDimensionCheck(t *testing.T) {
	api := &fakeEmbeddingAPI{
		resp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 0, Embedding: []float32{1, 0, 0}}},
		},
	}
	p := newTestProvider(api, 2)

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsProviderError(err))
}

func TestOpenAIProviderCountMismatch(t *testing.T) {
	api := &fakeEmbeddingAPI{
		resp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 0, Embedding: []float32{1, 0}}},
		},
	}
	p := newTestProvider(api, 2)

	_, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, domain.IsProviderError(err))
}

func TestFactory(t *testing.T) {
	p, err := New(Config{Backend: BackendLocal, Dimensions: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, p.Dimension())

	p, err = New(Config{Backend: BackendOpenAI, APIKey: "sk-test", Model: "text-embedding-3-small"})
	require.NoError(t, err)
	assert.Equal(t, 1536, p.Dimension())

	_, err = New(Config{Backend: BackendOpenAI})
	assert.ErrorIs(t, err, domain.ErrMissingProviderAPIKey)

	_, err = New(Config{Backend: "chroma"})
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestKnownModelDimension(t *testing.T) {
	assert.Equal(t, 1536, KnownModelDimension("text-embedding-3-small"))
	assert.Equal(t, 3072, KnownModelDimension("text-embedding-3-large"))
	assert.Zero(t, KnownModelDimension("mystery-model"))
}
