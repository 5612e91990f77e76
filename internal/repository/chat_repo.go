package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"chat_playground/internal/models"

	"github.com/google/uuid"
)

type ChatSQLite struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatSQLite { return &ChatSQLite{db: db} }

var _ Chats = (*ChatSQLite)(nil)

const (
	insertChatSQL = `INSERT INTO chats (id, user_id, messages, code, created_at) VALUES (?, ?, ?, ?, ?)`

	selectChatsByUserSQL = `
		SELECT id, user_id, messages, code, created_at
		FROM chats WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?
	`

	selectRecentChatsSQL = `
		SELECT c.id, c.user_id, u.email, c.messages, c.code, c.created_at
		FROM chats c JOIN users u ON u.id = c.user_id
		ORDER BY c.created_at DESC LIMIT ?
	`
)

// Create inserts a chat. If ID or CreatedAt are empty, they’re set.
func (r *ChatSQLite) Create(ctx context.Context, c models.Chat) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	msgs, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("marshal chat messages: %w", err)
	}
	var code *string
	if c.Code != "" {
		code = &c.Code
	}
	if _, err := r.db.ExecContext(ctx, insertChatSQL, c.ID, c.UserID, string(msgs), code, c.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert chat for user %d: %w", c.UserID, err)
	}
	return nil
}

// ListByUser returns the newest chats of a user first.
func (r *ChatSQLite) ListByUser(ctx context.Context, userID, limit int) ([]models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, selectChatsByUserSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chats for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := make([]models.Chat, 0, limit)
	for rows.Next() {
		var (
			c    models.Chat
			msgs string
			code sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &msgs, &code, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		if err := fillChat(&c, msgs, code); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chats for user %d: %w", userID, err)
	}
	return out, nil
}

// ListRecent returns the newest chats across all users, with the owner email.
func (r *ChatSQLite) ListRecent(ctx context.Context, limit int) ([]models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, selectRecentChatsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent chats: %w", err)
	}
	defer rows.Close()

	out := make([]models.Chat, 0, limit)
	for rows.Next() {
		var (
			c    models.Chat
			msgs string
			code sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.UserEmail, &msgs, &code, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		if err := fillChat(&c, msgs, code); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recent chats: %w", err)
	}
	return out, nil
}

func fillChat(c *models.Chat, msgs string, code sql.NullString) error {
	if msgs != "" {
		if err := json.Unmarshal([]byte(msgs), &c.Messages); err != nil {
			return fmt.Errorf("unmarshal messages of chat %s: %w", c.ID, err)
		}
	}
	if code.Valid {
		c.Code = code.String
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return nil
}
