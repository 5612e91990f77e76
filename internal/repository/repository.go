package repository

import (
	"context"
	"database/sql"
	"errors"

	"chat_playground/internal/models"
)

// Repository-level errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Users is the credential store.
type Users interface {
	Create(ctx context.Context, u models.User) (int, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdatePassword(ctx context.Context, id int, hash string) error

	// RateLimit returns the configured per-minute ceiling; found is false for unknown ids.
	RateLimit(ctx context.Context, id int) (limit int, found bool, err error)
	SetRateLimit(ctx context.Context, id, limit int) error
}

// Chats stores chat conversations.
type Chats interface {
	Create(ctx context.Context, c models.Chat) error
	ListByUser(ctx context.Context, userID, limit int) ([]models.Chat, error)
	ListRecent(ctx context.Context, limit int) ([]models.Chat, error)
}

type Repository struct {
	Users Users
	Chats Chats
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Users: NewUserRepository(db),
		Chats: NewChatRepository(db),
	}
}
