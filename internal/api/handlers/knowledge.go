// Package handlers implements the HTTP endpoints of the API server.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tome-labs/tome/internal/api"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/service"
)

type KnowledgeService interface {
	Ingest(ctx context.Context, input service.IngestInput) (*domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]*domain.Document, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*service.Stats, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type IndexRequest struct {
	Filename    string            `json:"filename"`
	Source      string            `json:"source"`
	ContentType string            `json:"content_type"`
	Content     string            `json:"content"`
	Metadata    map[string]string `json:"metadata"`
}

type DocumentResponse struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename,omitempty"`
	Source       string            `json:"source"`
	ContentType  string            `json:"content_type"`
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	ChunkCount   int               `json:"chunk_count"`
	FileSize     int64             `json:"file_size"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

type StatsResponse struct {
	Documents       int64  `json:"documents"`
	DocumentsReady  int64  `json:"documents_ready"`
	DocumentsFailed int64  `json:"documents_failed"`
	Chunks          int64  `json:"chunks"`
	EmbeddingModel  string `json:"embedding_model"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:           d.ID,
		Filename:     d.Filename,
		Source:       d.Source,
		ContentType:  string(d.ContentType),
		Status:       string(d.Status),
		ErrorMessage: d.ErrorMessage,
		ChunkCount:   d.ChunkCount,
		FileSize:     d.FileSize,
		Metadata:     d.Metadata,
		CreatedAt:    d.CreatedAt.Format(timeFormat),
		UpdatedAt:    d.UpdatedAt.Format(timeFormat),
	}
}

// Index accepts a document and queues it for ingestion. The response
// carries the document in its initial lifecycle state.
func (h *KnowledgeHandler) Index(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Filename == "" && req.Source == "" {
		api.Error(w, http.StatusBadRequest, "filename or source is required")
		return
	}

	doc, err := h.svc.Ingest(r.Context(), service.IngestInput{
		Filename:    req.Filename,
		Source:      req.Source,
		ContentType: domain.ContentType(req.ContentType),
		Content:     req.Content,
		Metadata:    req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(docs))
	for i, d := range docs {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// Status reports knowledge base totals at the API root.
func (h *KnowledgeHandler) Status(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &StatsResponse{
		Documents:       stats.Documents,
		DocumentsReady:  stats.DocumentsReady,
		DocumentsFailed: stats.DocumentsFailed,
		Chunks:          stats.Chunks,
		EmbeddingModel:  stats.EmbeddingModel,
	})
}
