package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/tome-labs/tome/internal/domain"
)

const defaultBatchSize = 10

// PendingDocumentSource lists documents waiting for ingestion.
type PendingDocumentSource interface {
	ListPending(ctx context.Context, limit int) ([]*domain.Document, error)
}

// DocumentProcessor runs the ingestion pipeline for one document.
type DocumentProcessor interface {
	Process(ctx context.Context, docID string) error
}

// IndexingWorker drains uploaded documents through the ingestion pipeline.
// The document row itself is the queue entry; a document that fails ends
// in the error state and is not picked up again.
type IndexingWorker struct {
	source    PendingDocumentSource
	processor DocumentProcessor
	batchSize int
}

// NewIndexingWorker creates a new IndexingWorker instance
func NewIndexingWorker(source PendingDocumentSource, processor DocumentProcessor) *IndexingWorker {
	return &IndexingWorker{
		source:    source,
		processor: processor,
		batchSize: defaultBatchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexingWorker) ProcessJobs(ctx context.Context) error {
	docs, err := w.source.ListPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending documents: %w", err)
	}

	if len(docs) == 0 {
		return nil
	}

	log.Printf("indexing: processing %d pending documents", len(docs))

	for _, doc := range docs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processor.Process(ctx, doc.ID); err != nil {
			// the pipeline already parked the document in the error
			// state; log and move on to the next one
			log.Printf("indexing: document %s failed: %v", doc.ID, err)
		}
	}

	return nil
}
