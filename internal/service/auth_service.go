package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"chat_playground/internal/models"
	"chat_playground/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// DefaultResetPassword is what an admin password reset sets; users should change it.
const DefaultResetPassword = "changeme123"

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token string
	User  models.User
}

// AuthService handles credentials and account administration.
type AuthService struct {
	users  repository.Users
	tokens *TokenService

	userLimit  int
	adminLimit int
}

func NewAuthService(users repository.Users, tokens *TokenService) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		userLimit:  models.DefaultRateLimit,
		adminLimit: models.DefaultAdminRateLimit,
	}
}

// WithRateLimits overrides the ceilings given to new user and admin accounts.
// Non-positive values keep the defaults.
func (s *AuthService) WithRateLimits(user, admin int) *AuthService {
	if user > 0 {
		s.userLimit = user
	}
	if admin > 0 {
		s.adminLimit = admin
	}
	return s
}

// Register creates a non-admin account with the default rate limit and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return AuthResult{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return AuthResult{}, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}
	if existing != nil {
		return AuthResult{}, ErrUserExists
	}

	u := models.User{
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      false,
		RateLimit:    s.userLimit,
	}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, ErrUserExists
		}
		return AuthResult{}, err
	}
	u.ID = id
	return s.signIn(u)
}

// Login checks credentials against the exact stored email. There is no special
// case for admin accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return AuthResult{}, err
	}
	if u == nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.signIn(*u)
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	if err := verifyPassword(u.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return s.updatePassword(ctx, userID, hash)
}

// ResetPassword sets DefaultResetPassword for the user and returns it.
func (s *AuthService) ResetPassword(ctx context.Context, userID int) (string, error) {
	hash, err := hashPassword(DefaultResetPassword)
	if err != nil {
		return "", err
	}
	if err := s.updatePassword(ctx, userID, hash); err != nil {
		return "", err
	}
	return DefaultResetPassword, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// EnsureAdmin creates the admin account if it does not exist yet.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return false, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	_, err = s.users.Create(ctx, models.User{
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
		RateLimit:    s.adminLimit,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthService) updatePassword(ctx context.Context, userID int, hash string) error {
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *AuthService) signIn(u models.User) (AuthResult, error) {
	token, err := s.tokens.Issue(u.Identity())
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return nil
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("%w: password is empty", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
