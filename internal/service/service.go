package service

import (
	"context"
	"time"

	"chat_playground/internal/models"
	"chat_playground/internal/repository"
)

// Tokens issues and verifies identity tokens.
type Tokens interface {
	Issue(id models.Identity) (string, error)
	Verify(token string) (models.Identity, error)
	TTL() time.Duration
}

// Auth covers credentials and account administration.
type Auth interface {
	Register(ctx context.Context, email, password string) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	ChangePassword(ctx context.Context, userID int, current, next string) error
	ResetPassword(ctx context.Context, userID int) (string, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

// Limiter is the per-user, per-minute call budget.
// Run prunes stale windows until ctx is canceled.
type Limiter interface {
	CheckAndConsume(ctx context.Context, userID int) (int, error)
	UpdateLimit(ctx context.Context, userID, limit int) error
	Snapshot(userID int) (Window, bool)
	Run(ctx context.Context, tick time.Duration)
}

// Chat runs chat turns and exposes stored conversations.
type Chat interface {
	Send(ctx context.Context, id models.Identity, messages []models.ChatMessage) (ChatTurn, error)
	History(ctx context.Context, userID int) ([]models.Chat, error)
	Recent(ctx context.Context) ([]models.Chat, error)
}

// Service aggregates all sub-services.
type Service struct {
	Tokens
	Auth
	Limiter
	Chat
}

// Options carries the tunables NewService needs from configuration.
type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	UserRateLimit  int
	AdminRateLimit int
	HistoryWindow  int
	Assistant      Assistant
	Clock          func() time.Time
}

// NewService wires the repository layer into concrete services. Tokens, the
// limiter and chat timestamps share one clock.
func NewService(repos *repository.Repository, opts Options) *Service {
	tokens := NewTokenService(opts.JWTSecret, opts.TokenTTL)
	limiter := NewRateLimiter(repos.Users)
	chat := NewChatService(repos.Chats, limiter, opts.Assistant, opts.HistoryWindow)
	if opts.Clock != nil {
		tokens.WithClock(opts.Clock)
		limiter.WithClock(opts.Clock)
		chat.WithClock(opts.Clock)
	}

	return &Service{
		Tokens:  tokens,
		Auth:    NewAuthService(repos.Users, tokens).WithRateLimits(opts.UserRateLimit, opts.AdminRateLimit),
		Limiter: limiter,
		Chat:    chat,
	}
}
