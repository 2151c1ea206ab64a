package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tome-labs/tome/internal/domain"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	meta, err := marshalMetadata(d.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO documents (id, filename, source, content_type, status, error_message, chunk_count, file_size, content, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, nullableString(d.Filename), d.Source, d.ContentType, d.Status, nullableString(d.ErrorMessage),
		d.ChunkCount, d.FileSize, d.Content, meta, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, filename, source, content_type, status, error_message, chunk_count, file_size, content, metadata, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, filename, source, content_type, status, error_message, chunk_count, file_size, content, metadata, created_at, updated_at
		 FROM documents ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

// ListPending returns documents still waiting for ingestion, oldest first,
// so the indexing worker drains them in upload order.
func (r *DocumentRepository) ListPending(ctx context.Context, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, filename, source, content_type, status, error_message, chunk_count, file_size, content, metadata, created_at, updated_at
		 FROM documents WHERE status = $1 ORDER BY created_at LIMIT $2`,
		domain.DocumentStatusUploading, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errorMessage string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		status, nullableString(errorMessage), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkReady finalizes a successful ingestion: status ready, chunk count
// recorded, raw content dropped since the chunks now hold it.
func (r *DocumentRepository) MarkReady(ctx context.Context, id string, chunkCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, chunk_count = $2, error_message = NULL, content = '', updated_at = $3 WHERE id = $4`,
		domain.DocumentStatusReady, chunkCount, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// CountByStatus returns document totals keyed by lifecycle status.
func (r *DocumentRepository) CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, count(*) FROM documents GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.DocumentStatus]int64)
	for rows.Next() {
		var status domain.DocumentStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type documentScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row documentScanner) (*domain.Document, error) {
	var d domain.Document
	var filename, errorMessage *string
	var meta []byte
	err := row.Scan(&d.ID, &filename, &d.Source, &d.ContentType, &d.Status, &errorMessage,
		&d.ChunkCount, &d.FileSize, &d.Content, &meta, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if filename != nil {
		d.Filename = *filename
	}
	if errorMessage != nil {
		d.ErrorMessage = *errorMessage
	}
	if d.Metadata, err = unmarshalMetadata(meta); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
