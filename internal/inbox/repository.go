package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/relaydesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence for conversations and
// messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListConversations returns conversations ordered by recency.
func (r *Repository) ListConversations(ctx context.Context, status ConversationStatus, page, perPage int) ([]Conversation, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, contact_id, assignee_id, channel, subject, status, last_seen_at, created_at, updated_at
FROM conversations WHERE ($1 = '' OR status = $1)
ORDER BY updated_at DESC LIMIT $2 OFFSET $3`, string(status), perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.ContactID, &c.AssigneeID, &c.Channel, &c.Subject, &c.Status, &c.LastSeenAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, shared.Pagination{}, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return conversations, shared.NewPagination(page, perPage, total), nil
}

// GetConversation fetches one conversation.
func (r *Repository) GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	var c Conversation
	err := r.pool.QueryRow(ctx, `SELECT id, contact_id, assignee_id, channel, subject, status, last_seen_at, created_at, updated_at
FROM conversations WHERE id = $1`, id).Scan(&c.ID, &c.ContactID, &c.AssigneeID, &c.Channel, &c.Subject, &c.Status, &c.LastSeenAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, shared.ErrNotFound
		}
		return Conversation{}, err
	}
	return c, nil
}

// ListMessages returns messages for a conversation in chronological order.
func (r *Repository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, conversation_id, author_id, direction, content, created_at
FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []Message
	for rows.Next() {
		var m Message
		var content []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Direction, &content, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(content, &m.Content); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

// InsertMessage persists an authoritative message and bumps the
// conversation's updated timestamp.
func (r *Repository) InsertMessage(ctx context.Context, conversationID uuid.UUID, authorID int64, content ContentEnvelope) (Message, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return Message{}, err
	}
	var m Message
	err = r.pool.QueryRow(ctx, `INSERT INTO messages (conversation_id, author_id, direction, content, created_at)
VALUES ($1, $2, 'outbound', $3, NOW())
RETURNING id, conversation_id, author_id, direction, created_at`, conversationID, authorID, payload).
		Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Direction, &m.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	m.Content = content
	if _, err := r.pool.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return Message{}, err
	}
	return m, nil
}

// UpdateStatus transitions a conversation's status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status ConversationStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE conversations SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Assign sets or clears the conversation assignee.
func (r *Repository) Assign(ctx context.Context, id uuid.UUID, assigneeID *int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE conversations SET assignee_id = $2, updated_at = NOW() WHERE id = $1`, id, assigneeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TouchLastSeen records when the contact was last active on the thread.
func (r *Repository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}
