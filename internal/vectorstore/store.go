// Package vectorstore persists chunk embeddings and answers
// nearest-neighbor queries behind a backend abstraction selected at
// startup.
package vectorstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tome-labs/tome/internal/domain"
)

// Entry is one chunk to persist.
type Entry struct {
	ID         string
	DocumentID string
	Content    string
	Source     string
	ChunkIndex int
	Embedding  []float32
	Metadata   map[string]string
}

// Hit is one query result, scored by cosine similarity.
type Hit struct {
	ID         string
	DocumentID string
	Content    string
	Source     string
	Score      float32
	Metadata   map[string]string
}

// Filter narrows a query. The zero value matches everything.
type Filter struct {
	DocumentID string
}

// Store is the vector backend contract. Query results are ordered by
// descending similarity with ties broken by insertion order, so identical
// inputs always produce identical output.
type Store interface {
	// Upsert inserts or replaces entries, idempotent by ID.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns at most topK hits for vector. topK below 1 is a
	// validation error.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error)

	// DeleteByDocument removes every chunk of a document. Callers never
	// observe a partial delete.
	DeleteByDocument(ctx context.Context, docID string) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int64, error)
}

// Backend names for the factory
const (
	BackendPgvector = "pgvector"
	BackendMemory   = "memory"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend    string
	Dimensions int
}

// New builds the store named by cfg.Backend. The pgvector backend requires
// a connection pool.
func New(cfg Config, pool *pgxpool.Pool) (Store, error) {
	switch cfg.Backend {
	case BackendPgvector:
		if pool == nil {
			return nil, domain.ErrMissingDatabaseURL
		}
		return NewPgvectorStore(pool, cfg.Dimensions), nil
	case BackendMemory:
		return NewMemoryStore(cfg.Dimensions), nil
	default:
		return nil, domain.ErrUnknownVectorBackend
	}
}
