package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tome-labs/tome/internal/domain"
)

type ProgressRepository struct {
	db dbtx
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{db: pool}
}

func NewProgressRepositoryWithTx(tx pgx.Tx) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

func (r *ProgressRepository) CreateItem(ctx context.Context, item *domain.LearningItem) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO learning_items (id, title, author, type, total_chapters, completed_chapters, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.Title, nullableString(item.Author), item.Type,
		item.TotalChapters, item.CompletedChapters, item.CreatedAt, item.UpdatedAt,
	)
	return err
}

func (r *ProgressRepository) GetItem(ctx context.Context, id string) (*domain.LearningItem, error) {
	var item domain.LearningItem
	var author *string
	err := r.db.QueryRow(ctx,
		`SELECT id, title, author, type, total_chapters, completed_chapters, created_at, updated_at
		 FROM learning_items WHERE id = $1`,
		id,
	).Scan(&item.ID, &item.Title, &author, &item.Type, &item.TotalChapters, &item.CompletedChapters, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLearningItemNotFound
		}
		return nil, err
	}
	if author != nil {
		item.Author = *author
	}
	return &item, nil
}

func (r *ProgressRepository) ListItems(ctx context.Context) ([]*domain.LearningItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, author, type, total_chapters, completed_chapters, created_at, updated_at
		 FROM learning_items ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.LearningItem
	for rows.Next() {
		var item domain.LearningItem
		var author *string
		if err := rows.Scan(&item.ID, &item.Title, &author, &item.Type, &item.TotalChapters, &item.CompletedChapters, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		if author != nil {
			item.Author = *author
		}
		results = append(results, &item)
	}
	return results, rows.Err()
}

func (r *ProgressRepository) DeleteItem(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM learning_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLearningItemNotFound
	}
	return nil
}

func (r *ProgressRepository) CreateChapter(ctx context.Context, c *domain.Chapter) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chapters (id, item_id, chapter_index, title, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.ItemID, c.Index, c.Title, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ProgressRepository) ListChapters(ctx context.Context, itemID string) ([]*domain.Chapter, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, item_id, chapter_index, title, status, created_at, updated_at
		 FROM chapters WHERE item_id = $1 ORDER BY chapter_index`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Chapter
	for rows.Next() {
		var c domain.Chapter
		if err := rows.Scan(&c.ID, &c.ItemID, &c.Index, &c.Title, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func (r *ProgressRepository) GetChapter(ctx context.Context, id string) (*domain.Chapter, error) {
	var c domain.Chapter
	err := r.db.QueryRow(ctx,
		`SELECT id, item_id, chapter_index, title, status, created_at, updated_at
		 FROM chapters WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ItemID, &c.Index, &c.Title, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChapterNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ProgressRepository) UpdateChapterStatus(ctx context.Context, id string, status domain.ChapterStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chapters SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChapterNotFound
	}
	return nil
}

// RecountCompleted refreshes the denormalized completed-chapter counter
// after a chapter status change.
func (r *ProgressRepository) RecountCompleted(ctx context.Context, itemID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE learning_items
		 SET completed_chapters = (SELECT count(*) FROM chapters WHERE item_id = $1 AND status = $2),
		     updated_at = $3
		 WHERE id = $1`,
		itemID, domain.ChapterStatusDone, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLearningItemNotFound
	}
	return nil
}
