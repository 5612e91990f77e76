package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chat_playground/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL matches the lifetime of the token cookie.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the signed token payload: the identity snapshot plus iat/exp.
type Claims struct {
	ID      int    `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens. Tokens are not
// persisted and cannot be revoked; they stay valid until exp.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for iat/exp and for validation.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// TTL reports the token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for the identity with exp = now + ttl.
func (s *TokenService) Issue(id models.Identity) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		ID:      id.ID,
		Email:   id.Email,
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded identity.
// Failures are ErrTokenExpired or ErrInvalidToken.
func (s *TokenService) Verify(accessToken string) (models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, ErrTokenExpired
		}
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}

	raw, err := json.Marshal(claims)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return models.Identity{
		ID:      claims.ID,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
		Raw:     raw,
	}, nil
}
