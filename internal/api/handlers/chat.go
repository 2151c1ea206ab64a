package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tome-labs/tome/internal/api"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/service"
)

type ChatService interface {
	Stream(ctx context.Context, input service.StreamInput) (<-chan service.Event, error)
	GetConversation(ctx context.Context, id string) (*domain.Conversation, []*domain.Message, error)
	ListConversations(ctx context.Context, offset, limit int) ([]*domain.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type MessageResponse struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	Content      string `json:"content"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func conversationToResponse(c *domain.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.Format(timeFormat),
		UpdatedAt: c.UpdatedAt.Format(timeFormat),
	}
}

func messageToResponse(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:           m.ID,
		Role:         string(m.Role),
		Content:      m.Content,
		InputTokens:  m.InputTokens,
		OutputTokens: m.OutputTokens,
		CreatedAt:    m.CreatedAt.Format(timeFormat),
	}
}

// Chat streams an assistant reply over server-sent events. Client
// disconnects cancel the request context; text produced so far is still
// persisted by the chat service.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	events, err := h.svc.Stream(r.Context(), service.StreamInput{
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sse, err := api.NewSSEWriter(w)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	for ev := range events {
		if err := sse.Send(ev); err != nil {
			// client went away; drain so the service can finish persisting
			log.Printf("chat: stream write failed: %v", err)
			for range events {
			}
			return
		}
	}
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	offset := parseIntParam(r, "offset", 0)
	limit := parseIntParam(r, "limit", 20)

	convs, err := h.svc.ListConversations(r.Context(), offset, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ConversationResponse, len(convs))
	for i, c := range convs {
		responses[i] = conversationToResponse(c)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, messages, err := h.svc.GetConversation(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	msgResponses := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		msgResponses[i] = messageToResponse(m)
	}

	api.Success(w, http.StatusOK, map[string]any{
		"conversation": conversationToResponse(conv),
		"messages":     msgResponses,
	})
}

func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteConversation(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
