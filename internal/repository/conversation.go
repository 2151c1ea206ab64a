package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tome-labs/tome/internal/domain"
)

type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)`,
		c.ID, nullableString(c.Title), c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	var title *string
	err := r.db.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	if title != nil {
		c.Title = *title
	}
	return &c, nil
}

// List returns conversations newest-activity first, paged by offset.
func (r *ConversationRepository) List(ctx context.Context, offset, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, title, created_at, updated_at
		 FROM conversations ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var title *string
		if err := rows.Scan(&c.ID, &title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if title != nil {
			c.Title = *title
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func (r *ConversationRepository) UpdateTitle(ctx context.Context, id, title string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversations SET title = $1, updated_at = $2 WHERE id = $3`,
		title, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// Touch bumps updated_at so the conversation sorts to the top of the list.
func (r *ConversationRepository) Touch(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) CreateMessage(ctx context.Context, m *domain.Message) error {
	meta, err := marshalMetadata(m.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, input_tokens, output_tokens, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.InputTokens, m.OutputTokens, meta, m.CreatedAt,
	)
	return err
}

// ListMessages returns a conversation's messages oldest first, the order
// the chat history is replayed to the model.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, role, content, input_tokens, output_tokens, metadata, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY created_at, id`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Message
	for rows.Next() {
		var m domain.Message
		var meta []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.InputTokens, &m.OutputTokens, &meta, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		results = append(results, &m)
	}
	return results, rows.Err()
}
