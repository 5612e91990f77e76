package models

import "time"

// Default per-minute ceilings for new accounts.
const (
	DefaultRateLimit      = 60
	DefaultAdminRateLimit = 1000
)

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // don’t expose hash
	IsAdmin      bool      `json:"isAdmin"`
	RateLimit    int       `json:"rateLimit"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity returns the snapshot that gets embedded into a token.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
}
