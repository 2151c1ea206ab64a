// Package service implements the business logic for document ingestion,
// semantic search, chat orchestration, and learning progress.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tome-labs/tome/internal/chunker"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/embedding"
	"github.com/tome-labs/tome/internal/parser"
	"github.com/tome-labs/tome/internal/telemetry"
	"github.com/tome-labs/tome/internal/vectorstore"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]*domain.Document, error)
	ListPending(ctx context.Context, limit int) ([]*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errorMessage string) error
	MarkReady(ctx context.Context, id string, chunkCount int) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int64, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// KnowledgeService drives documents through the ingestion pipeline and
// keeps the vector store consistent with the document table.
type KnowledgeService struct {
	docRepo   DocumentRepositoryInterface
	store     vectorstore.Store
	provider  embedding.Provider
	chunkSize int
	overlap   int
	uuidGen   UUIDGenerator
}

// NewKnowledgeService creates a new KnowledgeService instance. Chunking
// settings are validated once here; a bad combination is a configuration
// error surfaced at startup rather than per document.
func NewKnowledgeService(
	docRepo DocumentRepositoryInterface,
	store vectorstore.Store,
	provider embedding.Provider,
	chunkSize, overlap int,
) (*KnowledgeService, error) {
	if err := chunker.ValidateConfig(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &KnowledgeService{
		docRepo:   docRepo,
		store:     store,
		provider:  provider,
		chunkSize: chunkSize,
		overlap:   overlap,
		uuidGen:   &DefaultUUIDGenerator{},
	}, nil
}

// NewKnowledgeServiceWithUUIDGen creates a KnowledgeService with a custom
// UUID generator (for testing).
func NewKnowledgeServiceWithUUIDGen(
	docRepo DocumentRepositoryInterface,
	store vectorstore.Store,
	provider embedding.Provider,
	chunkSize, overlap int,
	uuidGen UUIDGenerator,
) (*KnowledgeService, error) {
	svc, err := NewKnowledgeService(docRepo, store, provider, chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	svc.uuidGen = uuidGen
	return svc, nil
}

// IngestInput represents an uploaded document.
type IngestInput struct {
	Filename    string
	Source      string
	ContentType domain.ContentType
	Content     string
	Metadata    map[string]string
}

// Ingest records an uploaded document and returns it in its initial
// lifecycle state. Indexing happens asynchronously via Process.
func (s *KnowledgeService) Ingest(ctx context.Context, input IngestInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	now := time.Now().UTC()
	source := input.Source
	if source == "" {
		source = input.Filename
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = domain.ContentTypeText
	}

	doc := &domain.Document{
		ID:          s.uuidGen.NewString(),
		Filename:    input.Filename,
		Source:      source,
		ContentType: contentType,
		Status:      domain.DocumentStatusUploading,
		FileSize:    int64(len(input.Content)),
		Content:     input.Content,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := domain.ValidateDocument(doc); err != nil {
		span.SetError(err)
		return nil, err
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		span.SetError(err)
		return nil, err
	}

	return doc, nil
}

// Process runs the ingestion pipeline for one document: parse, chunk,
// embed, index. Any failure rolls back already-written chunks and parks
// the document in the error state with the failure message.
func (s *KnowledgeService) Process(ctx context.Context, docID string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Process", telemetry.SpanAttributes{
		DocumentID: docID,
		Operation:  "process",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		span.SetError(err)
		return err
	}
	if doc.Status.IsTerminal() {
		return domain.ErrDocumentNotIndexable
	}

	if err := s.transition(ctx, doc, domain.DocumentStatusParsing); err != nil {
		span.SetError(err)
		return err
	}

	text, err := parser.New(string(doc.ContentType)).Parse(doc.Content)
	if err != nil {
		return s.fail(ctx, doc.ID, err)
	}
	if text == "" {
		return s.fail(ctx, doc.ID, domain.NewDomainError(domain.ErrCodeValidation, "no content to index"))
	}

	if err := s.transition(ctx, doc, domain.DocumentStatusIndexing); err != nil {
		span.SetError(err)
		return err
	}

	chunks, err := chunker.Split(text, s.chunkSize, s.overlap)
	if err != nil {
		return s.fail(ctx, doc.ID, err)
	}
	if len(chunks) == 0 {
		return s.fail(ctx, doc.ID, domain.NewDomainError(domain.ErrCodeValidation, "no content to index"))
	}

	var vectors [][]float32
	err = withProviderRetry(ctx, func() error {
		var embedErr error
		vectors, embedErr = s.provider.EmbedBatch(ctx, chunks)
		return embedErr
	})
	if err != nil {
		return s.fail(ctx, doc.ID, err)
	}

	entries := make([]vectorstore.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vectorstore.Entry{
			ID:         fmt.Sprintf("%s:%d", doc.ID, i),
			DocumentID: doc.ID,
			Content:    chunk,
			Source:     doc.Source,
			ChunkIndex: i,
			Embedding:  vectors[i],
			Metadata:   doc.Metadata,
		}
	}

	if err := s.store.Upsert(ctx, entries); err != nil {
		return s.fail(ctx, doc.ID, err)
	}

	if err := s.docRepo.MarkReady(ctx, doc.ID, len(entries)); err != nil {
		// chunks reached the store but the row never reached ready;
		// roll the chunks back so both sides stay consistent
		return s.fail(ctx, doc.ID, err)
	}

	return nil
}

// Delete removes a document and its chunks. Chunks go first so a failure
// never leaves orphaned vectors behind a deleted document row.
func (s *KnowledgeService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Delete", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	if _, err := s.docRepo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteByDocument(ctx, id); err != nil {
		span.SetError(err)
		return err
	}
	return s.docRepo.Delete(ctx, id)
}

// GetByID retrieves a document by ID
func (s *KnowledgeService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, id)
}

// List returns all documents, newest first.
func (s *KnowledgeService) List(ctx context.Context) ([]*domain.Document, error) {
	return s.docRepo.List(ctx)
}

// Stats summarizes the knowledge base for the status endpoint.
type Stats struct {
	Documents       int64
	DocumentsReady  int64
	DocumentsFailed int64
	Chunks          int64
	EmbeddingModel  string
}

// Stats reports document and chunk totals.
func (s *KnowledgeService) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.docRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Chunks:         chunks,
		EmbeddingModel: s.provider.ModelName(),
	}
	for status, count := range counts {
		stats.Documents += count
		switch status {
		case domain.DocumentStatusReady:
			stats.DocumentsReady = count
		case domain.DocumentStatusError:
			stats.DocumentsFailed = count
		}
	}
	return stats, nil
}

func (s *KnowledgeService) transition(ctx context.Context, doc *domain.Document, to domain.DocumentStatus) error {
	if !domain.CanTransition(doc.Status, to) {
		return domain.ErrStatusRegression
	}
	if err := s.docRepo.UpdateStatus(ctx, doc.ID, to, ""); err != nil {
		return err
	}
	doc.Status = to
	return nil
}

// fail rolls back indexed chunks and records the failure on the document.
// The rollback runs on a detached context so request cancellation cannot
// leave partial chunks behind.
func (s *KnowledgeService) fail(ctx context.Context, docID string, cause error) error {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.store.DeleteByDocument(cleanupCtx, docID); err != nil {
		log.Printf("knowledge: rollback of document %s failed: %v", docID, err)
	}
	if err := s.docRepo.UpdateStatus(cleanupCtx, docID, domain.DocumentStatusError, cause.Error()); err != nil {
		log.Printf("knowledge: marking document %s failed: %v", docID, err)
	}
	return cause
}
