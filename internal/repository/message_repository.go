package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/secuteam/gwm-api/internal/models"
)

// MessageRepository persists direct messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, sender_id, recipient_id, body, created_at)
VALUES (:id, :sender_id, :recipient_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListBetween returns the message history between two users, oldest first.
func (r *MessageRepository) ListBetween(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	const query = `SELECT id, sender_id, recipient_id, body, read_at, created_at FROM messages
WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
ORDER BY created_at ASC LIMIT $3 OFFSET $4`
	var rows []models.Message
	if err := r.db.SelectContext(ctx, &rows, query, filter.UserID, filter.PeerID, pageSize, (page-1)*pageSize); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return rows, nil
}

// ListConversations summarises a user's conversations by peer.
func (r *MessageRepository) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	const query = `SELECT DISTINCT ON (peer_id)
	CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS peer_id,
	u.first_name AS peer_first_name,
	u.last_name AS peer_last_name,
	m.body AS last_body,
	m.created_at AS last_at,
	(SELECT COUNT(*) FROM messages um
	 WHERE um.recipient_id = $1 AND um.read_at IS NULL
	   AND um.sender_id = CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END) AS unread_count
FROM messages m
JOIN users u ON u.id = CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END
WHERE m.sender_id = $1 OR m.recipient_id = $1
ORDER BY peer_id, m.created_at DESC`
	var rows []models.Conversation
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return rows, nil
}

// MarkConversationRead stamps unread messages from peer to user as read.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, userID, peerID string, readAt time.Time) (int, error) {
	const query = `UPDATE messages SET read_at = $3 WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, userID, peerID, readAt)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check message rows: %w", err)
	}
	return int(affected), nil
}
