package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chat_playground/internal/models"
	"chat_playground/internal/repository"

	"github.com/google/uuid"
)

const (
	DefaultHistoryWindow = 5
	HistoryLimit         = 50
	RecentLimit          = 100
)

// Assistant produces the reply for a conversation.
type Assistant interface {
	Reply(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// EchoAssistant always answers with the same hello-world program.
type EchoAssistant struct{}

const echoReply = "Here's a simple Hello World program:\n\n" +
	"```python\nprint(\"Hello, World!\")\n```\n\n" +
	"This program will output \"Hello, World!\" to the console when run. Would you like me to explain how it works?"

func (EchoAssistant) Reply(ctx context.Context, _ []models.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return echoReply, nil
}

// ChatTurn is the outcome of one accepted message.
type ChatTurn struct {
	Chat      models.Chat
	Reply     string
	Chunks    []string
	Remaining int
}

// ChatService charges the rate limiter, asks the assistant and stores the conversation.
type ChatService struct {
	chats     repository.Chats
	limiter   *RateLimiter
	assistant Assistant
	window    int
	now       func() time.Time
}

func NewChatService(chats repository.Chats, limiter *RateLimiter, assistant Assistant, window int) *ChatService {
	if assistant == nil {
		assistant = EchoAssistant{}
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &ChatService{chats: chats, limiter: limiter, assistant: assistant, window: window, now: time.Now}
}

// WithClock replaces the time source used for CreatedAt.
func (s *ChatService) WithClock(now func() time.Time) *ChatService {
	s.now = now
	return s
}

// Send consumes one call from the user's window before doing anything else.
// Only the last window messages are kept.
func (s *ChatService) Send(ctx context.Context, id models.Identity, messages []models.ChatMessage) (ChatTurn, error) {
	remaining, err := s.limiter.CheckAndConsume(ctx, id.ID)
	if err != nil {
		return ChatTurn{}, err
	}

	if err := validateMessages(messages); err != nil {
		return ChatTurn{}, err
	}
	if len(messages) > s.window {
		messages = messages[len(messages)-s.window:]
	}

	reply, err := s.assistant.Reply(ctx, messages)
	if err != nil {
		return ChatTurn{}, fmt.Errorf("assistant reply: %w", err)
	}

	conversation := make([]models.ChatMessage, 0, len(messages)+1)
	conversation = append(conversation, messages...)
	conversation = append(conversation, models.ChatMessage{Role: models.RoleAssistant, Content: reply})

	chat := models.Chat{
		ID:        uuid.NewString(),
		UserID:    id.ID,
		UserEmail: id.Email,
		Messages:  conversation,
		Code:      ExtractCodeBlocks(reply),
		CreatedAt: s.now().UTC(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return ChatTurn{}, err
	}

	return ChatTurn{
		Chat:      chat,
		Reply:     reply,
		Chunks:    SplitChunks(reply),
		Remaining: remaining,
	}, nil
}

// History returns the user's most recent chats, newest first.
func (s *ChatService) History(ctx context.Context, userID int) ([]models.Chat, error) {
	return s.chats.ListByUser(ctx, userID, HistoryLimit)
}

// Recent returns the latest chats of all users with their emails.
func (s *ChatService) Recent(ctx context.Context) ([]models.Chat, error) {
	return s.chats.ListRecent(ctx, RecentLimit)
}

func validateMessages(messages []models.ChatMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: messages are required", ErrValidation)
	}
	for i, m := range messages {
		switch m.Role {
		case models.RoleUser, models.RoleAssistant, models.RoleSystem:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrValidation, i, m.Role)
		}
	}
	return nil
}

var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// ExtractCodeBlocks returns every fenced block of content joined by newlines.
func ExtractCodeBlocks(content string) string {
	return strings.Join(codeBlockRe.FindAllString(content, -1), "\n")
}

// SplitChunks splits a reply on single spaces, re-appending the separator to
// each chunk so the concatenation is the reply followed by one space.
func SplitChunks(reply string) []string {
	parts := strings.Split(reply, " ")
	chunks := make([]string, len(parts))
	for i, p := range parts {
		chunks[i] = p + " "
	}
	return chunks
}
