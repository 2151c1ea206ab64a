package service

import (
	"context"
	"strings"

	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/embedding"
	"github.com/tome-labs/tome/internal/telemetry"
	"github.com/tome-labs/tome/internal/vectorstore"
)

// DefaultTopK is the result count used when a caller does not specify one.
const DefaultTopK = 5

// SearchResult is one scored chunk returned to callers. Score is the raw
// cosine similarity, unfiltered and unthresholded.
type SearchResult struct {
	ID         string
	DocumentID string
	Content    string
	Source     string
	Score      float32
	Metadata   map[string]string
}

// SearchService answers semantic queries against the vector store.
type SearchService struct {
	store    vectorstore.Store
	provider embedding.Provider
}

func NewSearchService(store vectorstore.Store, provider embedding.Provider) *SearchService {
	return &SearchService{store: store, provider: provider}
}

// Search embeds the query and returns the topK nearest chunks. A blank
// query returns no results without touching the provider. topK at or
// below zero is rejected.
func (s *SearchService) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	return s.search(ctx, query, topK, vectorstore.Filter{})
}

// SearchInDocument restricts a search to a single document's chunks.
func (s *SearchService) SearchInDocument(ctx context.Context, query string, topK int, docID string) ([]SearchResult, error) {
	return s.search(ctx, query, topK, vectorstore.Filter{DocumentID: docID})
}

func (s *SearchService) search(ctx context.Context, query string, topK int, filter vectorstore.Filter) ([]SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		DocumentID: filter.DocumentID,
		Operation:  "search",
	})
	defer span.End()

	if topK <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if strings.TrimSpace(query) == "" {
		return []SearchResult{}, nil
	}

	var vector []float32
	err := withProviderRetry(ctx, func() error {
		var embedErr error
		vector, embedErr = s.provider.Embed(ctx, query)
		return embedErr
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	hits, err := s.store.Query(ctx, vector, topK, filter)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{
			ID:         h.ID,
			DocumentID: h.DocumentID,
			Content:    h.Content,
			Source:     h.Source,
			Score:      h.Score,
			Metadata:   h.Metadata,
		}
	}
	return results, nil
}
