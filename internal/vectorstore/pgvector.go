package vectorstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/tome-labs/tome/internal/domain"
)

// PgvectorStore persists chunks in the chunks table and searches with the
// pgvector cosine-distance operator.
type PgvectorStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

func NewPgvectorStore(pool *pgxpool.Pool, dimensions int) *PgvectorStore {
	return &PgvectorStore{pool: pool, dimensions: dimensions}
}

func (s *PgvectorStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, e := range entries {
		if s.dimensions > 0 && len(e.Embedding) != s.dimensions {
			return domain.ErrDimensionMismatch
		}
		meta, err := marshalMetadata(e.Metadata)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks
				(id, document_id, source, chunk_index, content, embedding, metadata, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				source      = EXCLUDED.source,
				chunk_index = EXCLUDED.chunk_index,
				content     = EXCLUDED.content,
				embedding   = EXCLUDED.embedding,
				metadata    = EXCLUDED.metadata`,
			e.ID,
			e.DocumentID,
			e.Source,
			e.ChunkIndex,
			e.Content,
			pgvector.NewVector(e.Embedding),
			meta,
			now,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PgvectorStore) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error) {
	if topK < 1 {
		return nil, domain.ErrInvalidTopK
	}
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return nil, domain.ErrDimensionMismatch
	}

	vec := pgvector.NewVector(vector)

	// ties resolve by insertion order so repeated queries are stable
	query := `
		SELECT id, document_id, content, source, metadata,
		       1 - (embedding <=> $1) AS score
		FROM chunks
		ORDER BY embedding <=> $1, created_at, chunk_index
		LIMIT $2`
	args := []interface{}{vec, topK}

	if filter.DocumentID != "" {
		query = `
			SELECT id, document_id, content, source, metadata,
			       1 - (embedding <=> $1) AS score
			FROM chunks
			WHERE document_id = $3
			ORDER BY embedding <=> $1, created_at, chunk_index
			LIMIT $2`
		args = append(args, filter.DocumentID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]Hit, 0, topK)
	for rows.Next() {
		var h Hit
		var meta []byte
		var score float64
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.Content, &h.Source, &meta, &score); err != nil {
			return nil, err
		}
		h.Score = roundScore(float32(score))
		if h.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

// DeleteByDocument removes every chunk of a document in one statement, so
// a concurrent reader sees either all chunks or none.
func (s *PgvectorStore) DeleteByDocument(ctx context.Context, docID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, docID)
	return err
}

func (s *PgvectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ChunksForDocument returns stored chunks ordered by chunk index. Used by
// integration tests and the reindex path.
func (s *PgvectorStore) ChunksForDocument(ctx context.Context, docID string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, source, chunk_index, content, embedding, metadata
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var vec pgvector.Vector
		var meta []byte
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Source, &e.ChunkIndex, &e.Content, &vec, &meta); err != nil {
			return nil, err
		}
		e.Embedding = vec.Slice()
		var err error
		if e.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func unmarshalMetadata(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
