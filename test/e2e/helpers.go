//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	openai "github.com/sashabaranov/go-openai"
	"github.com/tome-labs/tome/internal/api/handlers"
	"github.com/tome-labs/tome/internal/embedding"
	"github.com/tome-labs/tome/internal/jobs"
	"github.com/tome-labs/tome/internal/llm"
	"github.com/tome-labs/tome/internal/repository"
	"github.com/tome-labs/tome/internal/server"
	"github.com/tome-labs/tome/internal/service"
	"github.com/tome-labs/tome/internal/testutil"
	"github.com/tome-labs/tome/internal/vectorstore"
)

// embeddingDimensions matches the vector column in the chunks migration.
const embeddingDimensions = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	Worker     *jobs.Worker
	HTTPClient *http.Client
}

// SetupE2EEnv starts a pgvector container and an in-process server wired
// with local embeddings and a canned chat backend.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	docRepo := repository.NewDocumentRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)

	provider := embedding.NewLocalProvider(embeddingDimensions)
	store := vectorstore.NewPgvectorStore(pool, embeddingDimensions)

	knowledgeSvc, err := service.NewKnowledgeService(docRepo, store, provider, 200, 40)
	if err != nil {
		t.Fatalf("failed to create knowledge service: %v", err)
	}
	searchSvc := service.NewSearchService(store, provider)
	chatSvc := service.NewChatService(convRepo, searchSvc, &cannedCompleter{reply: "Here is what I found."})
	progressSvc := service.NewProgressService(progressRepo)

	worker := jobs.NewWorker(jobs.NewIndexingWorker(docRepo, knowledgeSvc), 200*time.Millisecond)
	go worker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
		SearchHandler:    handlers.NewSearchHandler(searchSvc),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		ProgressHandler:  handlers.NewProgressHandler(progressSvc),
	})

	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Server:     srv,
		Worker:     worker,
		HTTPClient: srv.Client(),
	}
}

// Cleanup tears the environment down in reverse startup order.
func (env *E2ETestEnv) Cleanup() {
	env.Worker.Stop()
	env.Server.Close()
	env.Pool.Close()
	if err := env.PostgresC.Terminate(env.Ctx); err != nil {
		env.T.Logf("failed to terminate postgres container: %v", err)
	}
}

// APIResponse is the server's standard envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Post sends a JSON POST and decodes the envelope.
func (env *E2ETestEnv) Post(path string, body any) (*APIResponse, int, error) {
	return env.Do(http.MethodPost, path, body)
}

// Get sends a GET and decodes the envelope.
func (env *E2ETestEnv) Get(path string) (*APIResponse, int, error) {
	return env.Do(http.MethodGet, path, nil)
}

// Do sends a JSON request and decodes the envelope.
func (env *E2ETestEnv) Do(method, path string, body any) (*APIResponse, int, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, env.Server.URL+path, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return decodeEnvelope(resp)
}

// PostStream sends a JSON POST and returns the raw response for SSE reading.
// The caller closes the body.
func (env *E2ETestEnv) PostStream(path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, env.Server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	return env.HTTPClient.Do(req)
}

func decodeEnvelope(resp *http.Response) (*APIResponse, int, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var envResp APIResponse
	if err := json.Unmarshal(raw, &envResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("invalid envelope: %s", raw)
	}
	return &envResp, resp.StatusCode, nil
}

// WaitForDocumentStatus polls until the document reaches the wanted status
// or the deadline passes.
func (env *E2ETestEnv) WaitForDocumentStatus(docID, want string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, code, err := env.Get("/documents/" + docID)
		if err != nil {
			return err
		}
		if code == http.StatusOK {
			var doc struct {
				Status string `json:"status"`
				Error  string `json:"error,omitempty"`
			}
			if err := json.Unmarshal(resp.Data, &doc); err != nil {
				return err
			}
			if doc.Status == want {
				return nil
			}
			if doc.Status == "error" && want != "error" {
				return fmt.Errorf("document %s failed ingestion: %s", docID, doc.Error)
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("document %s did not reach status %q within %s", docID, want, timeout)
}

// cannedCompleter streams a fixed reply without calling any external API.
type cannedCompleter struct {
	reply string
}

func (c *cannedCompleter) StreamChat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (llm.Stream, error) {
	return &cannedStream{frames: []openai.ChatCompletionStreamResponse{
		{Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{Content: c.reply}}}},
		{Usage: &openai.Usage{PromptTokens: 10, CompletionTokens: 5}},
	}}, nil
}

func (c *cannedCompleter) Model() string { return "canned" }

type cannedStream struct {
	frames []openai.ChatCompletionStreamResponse
	pos    int
}

func (s *cannedStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if s.pos >= len(s.frames) {
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, nil
}

func (s *cannedStream) Close() error { return nil }
