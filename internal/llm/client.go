// Package llm wraps the OpenAI chat completion API behind a small
// streaming interface so chat orchestration can be tested with fakes.
package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tome-labs/tome/internal/domain"
)

// DefaultChatModel is used when no model is configured.
const DefaultChatModel = openai.GPT4oMini

// ErrNoAPIKey is returned when the chat backend is enabled without a key.
var ErrNoAPIKey = errors.New("chat API key not set")

// Stream yields chat completion deltas until io.EOF.
type Stream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// ChatAPI is the slice of the OpenAI client the chat service depends on.
type ChatAPI interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (Stream, error)
}

// Client issues streaming chat completions against a fixed model.
type Client struct {
	api   ChatAPI
	model string
}

type openAIAdapter struct {
	client *openai.Client
}

func (a *openAIAdapter) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (Stream, error) {
	return a.client.CreateChatCompletionStream(ctx, req)
}

// Config holds chat client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient builds a client against the real OpenAI API.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	return &Client{
		api:   &openAIAdapter{client: openai.NewClientWithConfig(clientCfg)},
		model: model,
	}, nil
}

// NewClientWithAPI builds a client over a caller-supplied API, used in tests.
func NewClientWithAPI(api ChatAPI, model string) *Client {
	if model == "" {
		model = DefaultChatModel
	}
	return &Client{api: api, model: model}
}

// Model returns the configured chat model name.
func (c *Client) Model() string {
	return c.model
}

// StreamChat opens a completion stream for the given messages and tools.
// StreamOptions requests a usage frame so token counts can be persisted.
func (c *Client) StreamChat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}
	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, domain.NewProviderError("chat completion request failed", err)
	}
	return stream, nil
}
