package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/llm"
	"github.com/tome-labs/tome/internal/telemetry"
)

// ConversationRepositoryInterface defines the repository interface for chat persistence
type ConversationRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Conversation, error)
	UpdateTitle(ctx context.Context, id, title string) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, m *domain.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
}

// Searcher is the slice of the search service chat needs for its tool.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
}

// ChatCompleter opens streaming completions against the chat model.
type ChatCompleter interface {
	StreamChat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (llm.Stream, error)
	Model() string
}

// EventType labels a chat stream event.
type EventType string

const (
	EventText   EventType = "text"
	EventSource EventType = "source"
	EventError  EventType = "error"
	EventDone   EventType = "done"
)

// SourceRef is a citation emitted when the model consults the knowledge base.
type SourceRef struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
}

// Event is one frame of a chat stream.
type Event struct {
	Type           EventType   `json:"type"`
	Text           string      `json:"text,omitempty"`
	Sources        []SourceRef `json:"sources,omitempty"`
	Message        string      `json:"message,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
}

const (
	systemPrompt = "You are a personal knowledge assistant. Use the search_knowledge tool to " +
		"look up the user's documents before answering questions about their contents. " +
		"Answer from the retrieved passages and say so when nothing relevant is found."

	titleMaxLen        = 50
	sourcePreviewLen   = 200
	maxToolIterations  = 5
	eventBufferSize    = 16
	searchToolName     = "search_knowledge"
	searchToolTopK     = DefaultTopK
)

var searchTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        searchToolName,
		Description: "Search the personal knowledge base for passages relevant to a query.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The search query"
				}
			},
			"required": ["query"]
		}`),
	},
}

// ChatService orchestrates streaming conversations grounded in the
// knowledge base.
type ChatService struct {
	convRepo  ConversationRepositoryInterface
	searcher  Searcher
	completer ChatCompleter
	uuidGen   UUIDGenerator
}

func NewChatService(convRepo ConversationRepositoryInterface, searcher Searcher, completer ChatCompleter) *ChatService {
	return &ChatService{
		convRepo:  convRepo,
		searcher:  searcher,
		completer: completer,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewChatServiceWithUUIDGen creates a ChatService with a custom UUID
// generator (for testing).
func NewChatServiceWithUUIDGen(convRepo ConversationRepositoryInterface, searcher Searcher, completer ChatCompleter, uuidGen UUIDGenerator) *ChatService {
	svc := NewChatService(convRepo, searcher, completer)
	svc.uuidGen = uuidGen
	return svc
}

// StreamInput starts or continues a conversation.
type StreamInput struct {
	ConversationID string
	Message        string
}

// Stream persists the user message and returns a channel of events for the
// assistant's reply. The channel closes when the turn finishes. If ctx is
// cancelled mid-stream, text produced so far is still persisted.
func (s *ChatService) Stream(ctx context.Context, input StreamInput) (<-chan Event, error) {
	if input.Message == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "message is required")
	}

	conv, err := s.prepareConversation(ctx, input)
	if err != nil {
		return nil, err
	}

	history, err := s.convRepo.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	events := make(chan Event, eventBufferSize)
	go s.run(ctx, conv, history, events)
	return events, nil
}

func (s *ChatService) prepareConversation(ctx context.Context, input StreamInput) (*domain.Conversation, error) {
	now := time.Now().UTC()

	var conv *domain.Conversation
	if input.ConversationID != "" {
		existing, err := s.convRepo.GetByID(ctx, input.ConversationID)
		if err != nil {
			return nil, err
		}
		conv = existing
	} else {
		conv = &domain.Conversation{
			ID:        s.uuidGen.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.convRepo.Create(ctx, conv); err != nil {
			return nil, err
		}
	}

	userMsg := &domain.Message{
		ID:             s.uuidGen.NewString(),
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        input.Message,
		CreatedAt:      now,
	}
	if err := domain.ValidateMessage(userMsg); err != nil {
		return nil, err
	}
	if err := s.convRepo.CreateMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	// first message names the conversation
	if conv.Title == "" {
		title := truncateTitle(input.Message)
		if err := s.convRepo.UpdateTitle(ctx, conv.ID, title); err != nil {
			return nil, err
		}
		conv.Title = title
	}

	return conv, nil
}

// run drives the tool loop and owns the events channel.
func (s *ChatService) run(ctx context.Context, conv *domain.Conversation, history []*domain.Message, events chan<- Event) {
	defer close(events)

	ctx, span := telemetry.StartSpan(ctx, "ChatService.Stream", telemetry.SpanAttributes{
		ConversationID: conv.ID,
		Operation:      "chat",
	})
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	var (
		fullText     string
		inputTokens  int
		outputTokens int
	)

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		turn, err := s.streamOnce(ctx, messages, events)
		if turn != nil {
			fullText += turn.text
			inputTokens += turn.inputTokens
			outputTokens += turn.outputTokens
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.persistAssistant(ctx, conv, fullText, inputTokens, outputTokens)
				return
			}
			span.SetError(err)
			events <- Event{Type: EventError, Message: err.Error()}
			s.persistAssistant(ctx, conv, fullText, inputTokens, outputTokens)
			return
		}

		if len(turn.toolCalls) == 0 {
			break
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   turn.text,
			ToolCalls: turn.toolCalls,
		})
		for _, call := range turn.toolCalls {
			result, sources := s.runSearchTool(ctx, call)
			if len(sources) > 0 {
				events <- Event{Type: EventSource, Sources: sources}
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}

	s.persistAssistant(ctx, conv, fullText, inputTokens, outputTokens)
	events <- Event{Type: EventDone, ConversationID: conv.ID}
}

type turnResult struct {
	text         string
	toolCalls    []openai.ToolCall
	inputTokens  int
	outputTokens int
}

// streamOnce consumes a single completion stream, forwarding text deltas
// and accumulating tool call fragments. Partial results are returned even
// on error so callers can persist what was produced.
func (s *ChatService) streamOnce(ctx context.Context, messages []openai.ChatCompletionMessage, events chan<- Event) (*turnResult, error) {
	stream, err := s.completer.StreamChat(ctx, messages, []openai.Tool{searchTool})
	if err != nil {
		return &turnResult{}, err
	}
	defer stream.Close()

	turn := &turnResult{}
	calls := make(map[int]*openai.ToolCall)

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return turn, ctxErr
			}
			return turn, domain.NewProviderError("chat stream failed", err)
		}

		if resp.Usage != nil {
			turn.inputTokens += resp.Usage.PromptTokens
			turn.outputTokens += resp.Usage.CompletionTokens
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			turn.text += delta.Content
			select {
			case events <- Event{Type: EventText, Text: delta.Content}:
			case <-ctx.Done():
				return turn, ctx.Err()
			}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := calls[idx]
			if !ok {
				call = &openai.ToolCall{Type: openai.ToolTypeFunction}
				calls[idx] = call
			}
			call.ID += tc.ID
			call.Function.Name += tc.Function.Name
			call.Function.Arguments += tc.Function.Arguments
		}
	}

	for i := 0; i < len(calls); i++ {
		if call, ok := calls[i]; ok {
			turn.toolCalls = append(turn.toolCalls, *call)
		}
	}
	return turn, nil
}

// runSearchTool executes one search_knowledge call and renders both the
// tool result for the model and the source events for the client.
func (s *ChatService) runSearchTool(ctx context.Context, call openai.ToolCall) (string, []SourceRef) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || args.Query == "" {
		return "Invalid search arguments.", nil
	}

	results, err := s.searcher.Search(ctx, args.Query, searchToolTopK)
	if err != nil {
		log.Printf("chat: search tool failed: %v", err)
		return "Search failed: " + err.Error(), nil
	}
	if len(results) == 0 {
		return "No relevant passages found.", nil
	}

	sources := make([]SourceRef, len(results))
	for i, r := range results {
		sources[i] = SourceRef{
			Content: truncateRunes(r.Content, sourcePreviewLen),
			Source:  r.Source,
			Score:   r.Score,
		}
	}

	payload, err := json.Marshal(sources)
	if err != nil {
		return "Search failed: " + err.Error(), nil
	}
	return string(payload), sources
}

// persistAssistant saves whatever assistant text exists. It runs on a
// detached context so a cancelled request still gets its partial reply
// recorded.
func (s *ChatService) persistAssistant(ctx context.Context, conv *domain.Conversation, text string, inputTokens, outputTokens int) {
	if text == "" {
		return
	}
	saveCtx := context.WithoutCancel(ctx)

	msg := &domain.Message{
		ID:             s.uuidGen.NewString(),
		ConversationID: conv.ID,
		Role:           domain.RoleAssistant,
		Content:        text,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.convRepo.CreateMessage(saveCtx, msg); err != nil {
		log.Printf("chat: persisting assistant message failed: %v", err)
		return
	}
	if err := s.convRepo.Touch(saveCtx, conv.ID); err != nil {
		log.Printf("chat: touching conversation failed: %v", err)
	}
}

// GetConversation returns a conversation with its messages.
func (s *ChatService) GetConversation(ctx context.Context, id string) (*domain.Conversation, []*domain.Message, error) {
	conv, err := s.convRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.convRepo.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return conv, messages, nil
}

// ListConversations returns a page of conversations, most recent first.
func (s *ChatService) ListConversations(ctx context.Context, offset, limit int) ([]*domain.Conversation, error) {
	return s.convRepo.List(ctx, offset, limit)
}

// DeleteConversation removes a conversation and its messages.
func (s *ChatService) DeleteConversation(ctx context.Context, id string) error {
	return s.convRepo.Delete(ctx, id)
}

func truncateTitle(message string) string {
	title := truncateRunes(message, titleMaxLen)
	if title != message {
		title += "..."
	}
	return title
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
