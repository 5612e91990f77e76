package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat_playground/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure implementation of Users interface at compile time.
var _ Users = (*UserRepository)(nil)

const (
	insertUserSQL        = `INSERT INTO users (email, password_hash, is_admin, rate_limit, created_at) VALUES (?, ?, ?, ?, ?)`
	selectUserByEmailSQL = `SELECT id, email, password_hash, is_admin, rate_limit, created_at FROM users WHERE email = ?`
	selectUserByIDSQL    = `SELECT id, email, password_hash, is_admin, rate_limit, created_at FROM users WHERE id = ?`
	selectUsersSQL       = `SELECT id, email, password_hash, is_admin, rate_limit, created_at FROM users ORDER BY id ASC`
	updatePasswordSQL    = `UPDATE users SET password_hash = ? WHERE id = ?`
	selectRateLimitSQL   = `SELECT rate_limit FROM users WHERE id = ?`
	updateRateLimitSQL   = `UPDATE users SET rate_limit = ? WHERE id = ?`
)

// Create inserts a new user and returns its ID. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u models.User) (int, error) {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, insertUserSQL, u.Email, u.PasswordHash, u.IsAdmin, u.RateLimit, createdAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user %q: %w", u.Email, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert user %q: %w", u.Email, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for user %q: %w", u.Email, err)
	}
	return int(lastID), nil
}

// GetByEmail fetches a user by email. Returns (nil, nil) if not found.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUserByEmailSQL, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %q: %w", email, err)
	}
	return u, nil
}

// GetByID fetches a user by id. Returns (nil, nil) if not found.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUserByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]models.User, 0, 16)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, hash string) error {
	return r.updateOne(ctx, updatePasswordSQL, id, "update password", hash, id)
}

func (r *UserRepository) RateLimit(ctx context.Context, id int) (int, bool, error) {
	var limit int
	if err := r.db.QueryRowContext(ctx, selectRateLimitSQL, id).Scan(&limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("select rate limit for user %d: %w", id, err)
	}
	return limit, true, nil
}

// SetRateLimit stores a new ceiling. Unknown ids yield ErrNotFound.
func (r *UserRepository) SetRateLimit(ctx context.Context, id, limit int) error {
	return r.updateOne(ctx, updateRateLimitSQL, id, "update rate limit", limit, id)
}

func (r *UserRepository) updateOne(ctx context.Context, query string, id int, op string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s for user %d: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s for user %d: rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s for user %d: %w", op, id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.RateLimit, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
