package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tome-labs/tome/internal/api"
	"github.com/tome-labs/tome/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, query string, topK int) ([]service.SearchResult, error)
	SearchInDocument(ctx context.Context, query string, topK int, docID string) ([]service.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query      string `json:"query"`
	TopK       *int   `json:"top_k"`
	DocumentID string `json:"document_id"`
}

type SearchResultResponse struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Source     string            `json:"source"`
	Score      float32           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Search answers a semantic query. top_k defaults when absent but an
// explicit non-positive value is rejected.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	topK := service.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	var (
		results []service.SearchResult
		err     error
	)
	if req.DocumentID != "" {
		results, err = h.svc.SearchInDocument(r.Context(), req.Query, topK, req.DocumentID)
	} else {
		results, err = h.svc.Search(r.Context(), req.Query, topK)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]SearchResultResponse, len(results))
	for i, res := range results {
		responses[i] = SearchResultResponse{
			ID:         res.ID,
			DocumentID: res.DocumentID,
			Content:    res.Content,
			Source:     res.Source,
			Score:      res.Score,
			Metadata:   res.Metadata,
		}
	}

	api.Success(w, http.StatusOK, responses)
}
