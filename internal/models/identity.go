package models

// Identity is the verified {id, email, isAdmin} snapshot carried by a token.
// It may lag behind the stored User until the holder re-authenticates.
type Identity struct {
	ID      int    `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`

	// Raw is the full verified payload (including iat/exp) as JSON.
	Raw []byte `json:"-"`
}
