package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/llm"
)

// fakeConversationRepo is an in-memory ConversationRepositoryInterface.
type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	messages      map[string][]*domain.Message
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*domain.Conversation),
		messages:      make(map[string][]*domain.Message),
	}
}

func (r *fakeConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *c
	r.conversations[c.ID] = &copied
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeConversationRepo) List(ctx context.Context, offset, limit int) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Conversation
	for _, c := range r.conversations {
		copied := *c
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeConversationRepo) UpdateTitle(ctx context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	c.Title = title
	return nil
}

func (r *fakeConversationRepo) Touch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeConversationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[id]; !ok {
		return domain.ErrConversationNotFound
	}
	delete(r.conversations, id)
	delete(r.messages, id)
	return nil
}

func (r *fakeConversationRepo) CreateMessage(ctx context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *m
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], &copied)
	return nil
}

func (r *fakeConversationRepo) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[conversationID]
	out := make([]*domain.Message, len(msgs))
	for i, m := range msgs {
		copied := *m
		out[i] = &copied
	}
	return out, nil
}

// scriptedStream replays canned stream responses.
type scriptedStream struct {
	responses []openai.ChatCompletionStreamResponse
	pos       int
	ctx       context.Context
}

func (s *scriptedStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if err := s.ctx.Err(); err != nil {
		return openai.ChatCompletionStreamResponse{}, err
	}
	if s.pos >= len(s.responses) {
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	resp := s.responses[s.pos]
	s.pos++
	return resp, nil
}

func (s *scriptedStream) Close() error { return nil }

// scriptedCompleter returns one scripted stream per call.
type scriptedCompleter struct {
	mu      sync.Mutex
	scripts [][]openai.ChatCompletionStreamResponse
	calls   int
}

func (c *scriptedCompleter) StreamChat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (llm.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls >= len(c.scripts) {
		return &scriptedStream{ctx: ctx}, nil
	}
	script := c.scripts[c.calls]
	c.calls++
	return &scriptedStream{responses: script, ctx: ctx}, nil
}

func (c *scriptedCompleter) Model() string { return "scripted" }

type fakeSearcher struct {
	results []SearchResult
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, nil
}

func textDelta(text string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{Content: text}},
		},
	}
}

func toolCallDelta(index int, id, name, arguments string) openai.ChatCompletionStreamResponse {
	idx := index
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{
				ToolCalls: []openai.ToolCall{
					{Index: &idx, ID: id, Function: openai.FunctionCall{Name: name, Arguments: arguments}},
				},
			}},
		},
	}
}

func usageFrame(prompt, completion int) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		Usage: &openai.Usage{PromptTokens: prompt, CompletionTokens: completion},
	}
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream to close")
		}
	}
}

func newTestChatService(repo ConversationRepositoryInterface, searcher Searcher, completer ChatCompleter) *ChatService {
	return NewChatServiceWithUUIDGen(repo, searcher, completer, &fixedUUIDGenerator{prefix: "chat"})
}

func TestStreamSimpleReply(t *testing.T) {
	repo := newFakeConversationRepo()
	completer := &scriptedCompleter{scripts: [][]openai.ChatCompletionStreamResponse{
		{textDelta("Hello"), textDelta(" there"), usageFrame(12, 4)},
	}}
	svc := newTestChatService(repo, &fakeSearcher{}, completer)

	events, err := svc.Stream(context.Background(), StreamInput{Message: "hi"})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, EventText, got[0].Type)
	assert.Equal(t, "Hello", got[0].Text)
	assert.Equal(t, " there", got[1].Text)
	assert.Equal(t, EventDone, got[2].Type)
	require.NotEmpty(t, got[2].ConversationID)

	msgs, err := repo.ListMessages(context.Background(), got[2].ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello there", msgs[1].Content)
	assert.Equal(t, 12, msgs[1].InputTokens)
	assert.Equal(t, 4, msgs[1].OutputTokens)
}

func TestStreamAutoTitlesNewConversation(t *testing.T) {
	repo := newFakeConversationRepo()
	completer := &scriptedCompleter{scripts: [][]openai.ChatCompletionStreamResponse{
		{textDelta("ok")},
	}}
	svc := newTestChatService(repo, &fakeSearcher{}, completer)

	long := "What does my reading list say about distributed systems design patterns?"
	events, err := svc.Stream(context.Background(), StreamInput{Message: long})
	require.NoError(t, err)
	got := collect(t, events)

	convID := got[len(got)-1].ConversationID
	conv, err := repo.GetByID(context.Background(), convID)
	require.NoError(t, err)
	assert.Equal(t, string([]rune(long)[:50])+"...", conv.Title)
	assert.Len(t, []rune(conv.Title), 53)
}

func TestStreamShortMessageTitleNotTruncated(t *testing.T) {
	repo := newFakeConversationRepo()
	completer := &scriptedCompleter{scripts: [][]openai.ChatCompletionStreamResponse{
		{textDelta("ok")},
	}}
	svc := newTestChatService(repo, &fakeSearcher{}, completer)

	events, err := svc.Stream(context.Background(), StreamInput{Message: "short question"})
	require.NoError(t, err)
	got := collect(t, events)

	conv, err := repo.GetByID(context.Background(), got[len(got)-1].ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "short question", conv.Title)
}

func TestStreamToolLoopEmitsSourcesBeforeText(t *testing.T) {
	repo := newFakeConversationRepo()
	searcher := &fakeSearcher{results: []SearchResult{
		{Content: "relevant passage", Source: "notes.txt", Score: 0.92},
		{Content: "another passage", Source: "book.md", Score: 0.81},
	}}
	completer := &scriptedCompleter{scripts: [][]openai.ChatCompletionStreamResponse{
		{
			toolCallDelta(0, "call-1", "search_knowledge", `{"query":`),
			toolCallDelta(0, "", "", `"design patterns"}`),
		},
		{textDelta("Based on your notes, "), textDelta("patterns matter.")},
	}}
	svc := newTestChatService(repo, searcher, completer)

	events, err := svc.Stream(context.Background(), StreamInput{Message: "what do my notes say?"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 4)
	assert.Equal(t, EventSource, got[0].Type)
	require.Len(t, got[0].Sources, 2)
	assert.Equal(t, "relevant passage", got[0].Sources[0].Content)
	assert.Equal(t, "notes.txt", got[0].Sources[0].Source)
	assert.InDelta(t, 0.92, got[0].Sources[0].Score, 1e-6)
	assert.Equal(t, EventText, got[1].Type)
	assert.Equal(t, EventText, got[2].Type)
	assert.Equal(t, EventDone, got[3].Type)

	require.Equal(t, []string{"design patterns"}, searcher.queries)

	msgs, err := repo.ListMessages(context.Background(), got[3].ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Based on your notes, patterns matter.", msgs[1].Content)
}

func TestStreamSourcePreviewTruncated(t *testing.T) {
	longContent := ""
	for len(longContent) < 300 {
		longContent += "lorem ipsum "
	}
	repo := newFakeConversationRepo()
	searcher := &fakeSearcher{results: []SearchResult{
		{Content: longContent, Source: "big.txt", Score: 0.5},
	}}
	completer := &scriptedCompleter{scripts: [][]openai.ChatCompletionStreamResponse{
		{toolCallDelta(0, "call-1", "search_knowledge", `{"query":"lorem"}`)},
		{textDelta("done")},
	}}
	svc := newTestChatService(repo, searcher, completer)

	events, err := svc.Stream(context.Background(), StreamInput{Message: "q"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Equal(t, EventSource, got[0].Type)
	assert.Len(t, []rune(got[0].Sources[0].Content), 200)
}

func TestStreamContinuesExistingConversation(t *testing.T) {
	repo := newFakeConversationRepo()
	completer := &scriptedCompleter{scripts: [][]openai.ChatCompletionStreamResponse{
		{textDelta("first reply")},
		{textDelta("second reply")},
	}}
	svc := newTestChatService(repo, &fakeSearcher{}, completer)

	events, err := svc.Stream(context.Background(), StreamInput{Message: "first"})
	require.NoError(t, err)
	got := collect(t, events)
	convID := got[len(got)-1].ConversationID

	events, err = svc.Stream(context.Background(), StreamInput{ConversationID: convID, Message: "second"})
	require.NoError(t, err)
	got = collect(t, events)
	assert.Equal(t, convID, got[len(got)-1].ConversationID)

	msgs, err := repo.ListMessages(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	// title stays from the first message
	conv, err := repo.GetByID(context.Background(), convID)
	require.NoError(t, err)
	assert.Equal(t, "first", conv.Title)
}

func TestStreamUnknownConversation(t *testing.T) {
	svc := newTestChatService(newFakeConversationRepo(), &fakeSearcher{}, &scriptedCompleter{})

	_, err := svc.Stream(context.Background(), StreamInput{ConversationID: "missing", Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestStreamEmptyMessageRejected(t *testing.T) {
	svc := newTestChatService(newFakeConversationRepo(), &fakeSearcher{}, &scriptedCompleter{})

	_, err := svc.Stream(context.Background(), StreamInput{Message: ""})
	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}

// blockingStream yields one delta then blocks until its context dies.
type blockingStream struct {
	ctx     context.Context
	yielded bool
}

func (s *blockingStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if !s.yielded {
		s.yielded = true
		return textDelta("partial answer"), nil
	}
	<-s.ctx.Done()
	return openai.ChatCompletionStreamResponse{}, s.ctx.Err()
}

func (s *blockingStream) Close() error { return nil }

type blockingCompleter struct{}

func (c *blockingCompleter) StreamChat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (llm.Stream, error) {
	return &blockingStream{ctx: ctx}, nil
}

func (c *blockingCompleter) Model() string { return "blocking" }

func TestStreamCancellationPersistsPartialText(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := newTestChatService(repo, &fakeSearcher{}, &blockingCompleter{})

	ctx, cancel := context.WithCancel(context.Background())
	events, err := svc.Stream(ctx, StreamInput{Message: "tell me everything"})
	require.NoError(t, err)

	// wait for the first delta, then cancel mid-stream
	first := <-events
	assert.Equal(t, EventText, first.Type)
	assert.Equal(t, "partial answer", first.Text)
	cancel()

	got := collect(t, events)
	for _, ev := range got {
		assert.NotEqual(t, EventDone, ev.Type)
	}

	// partial assistant text must still be recorded
	require.Eventually(t, func() bool {
		convs, err := repo.List(context.Background(), 0, 10)
		if err != nil || len(convs) == 0 {
			return false
		}
		msgs, err := repo.ListMessages(context.Background(), convs[0].ID)
		if err != nil || len(msgs) < 2 {
			return false
		}
		return msgs[1].Role == domain.RoleAssistant && msgs[1].Content == "partial answer"
	}, 2*time.Second, 10*time.Millisecond)
}

// failingStreamCompleter errors when opening the stream.
type failingStreamCompleter struct{}

func (c *failingStreamCompleter) StreamChat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (llm.Stream, error) {
	return nil, domain.NewProviderError("chat completion request failed", io.ErrUnexpectedEOF)
}

func (c *failingStreamCompleter) Model() string { return "failing" }

func TestStreamProviderFailureEmitsErrorEvent(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := newTestChatService(repo, &fakeSearcher{}, &failingStreamCompleter{})

	events, err := svc.Stream(context.Background(), StreamInput{Message: "hi"})
	require.NoError(t, err)

	got := collect(t, events)
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, EventError, last.Type)
	assert.NotEmpty(t, last.Message)
	for _, ev := range got {
		assert.NotEqual(t, EventDone, ev.Type)
	}
}

func TestConversationCRUD(t *testing.T) {
	repo := newFakeConversationRepo()
	completer := &scriptedCompleter{scripts: [][]openai.ChatCompletionStreamResponse{
		{textDelta("a")},
		{textDelta("b")},
	}}
	svc := newTestChatService(repo, &fakeSearcher{}, completer)

	ctx := context.Background()
	got := collect(t, mustStream(t, svc, ctx, StreamInput{Message: "one"}))
	first := got[len(got)-1].ConversationID
	got = collect(t, mustStream(t, svc, ctx, StreamInput{Message: "two"}))
	second := got[len(got)-1].ConversationID

	convs, err := svc.ListConversations(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, convs, 2)

	conv, msgs, err := svc.GetConversation(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, conv.ID)
	assert.Len(t, msgs, 2)

	require.NoError(t, svc.DeleteConversation(ctx, second))
	_, _, err = svc.GetConversation(ctx, second)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func mustStream(t *testing.T, svc *ChatService, ctx context.Context, input StreamInput) <-chan Event {
	t.Helper()
	events, err := svc.Stream(ctx, input)
	require.NoError(t, err)
	return events
}
