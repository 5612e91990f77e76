package models

import "time"

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of a conversation. Only text content is kept.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat is a stored conversation snapshot.
type Chat struct {
	ID        string        `json:"id"`
	UserID    int           `json:"userId"`
	UserEmail string        `json:"userEmail,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	Code      string        `json:"code,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}
