package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tome-labs/tome/internal/api"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/service"
)

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) Ingest(ctx context.Context, input service.IngestInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockKnowledgeService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockKnowledgeService) List(ctx context.Context) ([]*domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockKnowledgeService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockKnowledgeService) Stats(ctx context.Context) (*service.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Stats), args.Error(1)
}

func testDocument() *domain.Document {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Document{
		ID:          "doc-1",
		Filename:    "notes.txt",
		Source:      "notes.txt",
		ContentType: domain.ContentTypeText,
		Status:      domain.DocumentStatusUploading,
		FileSize:    11,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestIndexAccepted(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("Ingest", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.Filename == "notes.txt" && input.Content == "hello world"
	})).Return(testDocument(), nil)

	handler := NewKnowledgeHandler(svc)

	body, _ := json.Marshal(IndexRequest{Filename: "notes.txt", Content: "hello world"})
	req := httptest.NewRequest(http.MethodPost, "/index", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Index(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Data DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.Data.ID)
	assert.Equal(t, "uploading", resp.Data.Status)
	svc.AssertExpectations(t)
}

func TestIndexValidation(t *testing.T) {
	handler := NewKnowledgeHandler(new(MockKnowledgeService))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"content":`},
		{"missing content", `{"filename":"a.txt"}`},
		{"missing filename and source", `{"content":"text"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/index", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()

			handler.Index(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrDocumentNotFound)

	handler := NewKnowledgeHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/documents/missing", nil), "id", "missing")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "not found")
}

func TestListDocuments(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("List", mock.Anything).Return([]*domain.Document{testDocument()}, nil)

	handler := NewKnowledgeHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "doc-1", resp.Data[0].ID)
}

func TestDeleteDocument(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("Delete", mock.Anything, "doc-1").Return(nil)

	handler := NewKnowledgeHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/documents/doc-1", nil), "id", "doc-1")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestStatus(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("Stats", mock.Anything).Return(&service.Stats{
		Documents:      4,
		DocumentsReady: 3,
		Chunks:         120,
		EmbeddingModel: "text-embedding-3-small",
	}, nil)

	handler := NewKnowledgeHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.Status(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp.Data.Documents)
	assert.Equal(t, int64(120), resp.Data.Chunks)
	assert.Equal(t, "text-embedding-3-small", resp.Data.EmbeddingModel)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
