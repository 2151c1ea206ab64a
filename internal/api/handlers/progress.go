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

type ProgressService interface {
	CreateItem(ctx context.Context, input service.CreateItemInput) (*domain.LearningItem, error)
	GetItem(ctx context.Context, id string) (*domain.LearningItem, []*domain.Chapter, error)
	ListItems(ctx context.Context) ([]*domain.LearningItem, error)
	DeleteItem(ctx context.Context, id string) error
	SetChapterStatus(ctx context.Context, chapterID string, status domain.ChapterStatus) (*domain.Chapter, error)
}

type ProgressHandler struct {
	svc ProgressService
}

func NewProgressHandler(svc ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

type CreateItemRequest struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Type          string   `json:"type"`
	TotalChapters int      `json:"total_chapters"`
	ChapterTitles []string `json:"chapter_titles"`
}

type UpdateChapterRequest struct {
	Status string `json:"status"`
}

type LearningItemResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Author            string `json:"author,omitempty"`
	Type              string `json:"type"`
	TotalChapters     int    `json:"total_chapters"`
	CompletedChapters int    `json:"completed_chapters"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type ChapterResponse struct {
	ID     string `json:"id"`
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func itemToResponse(item *domain.LearningItem) *LearningItemResponse {
	return &LearningItemResponse{
		ID:                item.ID,
		Title:             item.Title,
		Author:            item.Author,
		Type:              string(item.Type),
		TotalChapters:     item.TotalChapters,
		CompletedChapters: item.CompletedChapters,
		CreatedAt:         item.CreatedAt.Format(timeFormat),
		UpdatedAt:         item.UpdatedAt.Format(timeFormat),
	}
}

func chapterToResponse(c *domain.Chapter) *ChapterResponse {
	return &ChapterResponse{
		ID:     c.ID,
		Index:  c.Index,
		Title:  c.Title,
		Status: string(c.Status),
	}
}

func (h *ProgressHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Type == "" {
		api.Error(w, http.StatusBadRequest, "type is required")
		return
	}

	item, err := h.svc.CreateItem(r.Context(), service.CreateItemInput{
		Title:         req.Title,
		Author:        req.Author,
		Type:          domain.LearningType(req.Type),
		TotalChapters: req.TotalChapters,
		ChapterTitles: req.ChapterTitles,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, itemToResponse(item))
}

func (h *ProgressHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, chapters, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	chapterResponses := make([]*ChapterResponse, len(chapters))
	for i, c := range chapters {
		chapterResponses[i] = chapterToResponse(c)
	}

	api.Success(w, http.StatusOK, map[string]any{
		"item":     itemToResponse(item),
		"chapters": chapterResponses,
	})
}

func (h *ProgressHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListItems(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*LearningItemResponse, len(items))
	for i, item := range items {
		responses[i] = itemToResponse(item)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *ProgressHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteItem(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (h *ProgressHandler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "chapterID")

	var req UpdateChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chapter, err := h.svc.SetChapterStatus(r.Context(), chapterID, domain.ChapterStatus(req.Status))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chapterToResponse(chapter))
}
