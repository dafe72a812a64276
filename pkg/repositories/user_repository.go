package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// GetByUserID retrieves a user by the login handle. Returns nil if not found.
	GetByUserID(ctx context.Context, userID string) (*models.User, error)

	// GetByEmail retrieves a user by email. Returns nil if not found.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Create inserts a new user and fills in the generated ID.
	Create(ctx context.Context, user *models.User) error

	// Update rewrites the mutable fields of an existing user.
	Update(ctx context.Context, user *models.User) error
}

// userRepository implements UserRepository using PostgreSQL.
type userRepository struct {
	q database.Querier
}

// NewUserRepository creates a new user repository bound to q.
func NewUserRepository(q database.Querier) UserRepository {
	return &userRepository{q: q}
}

const userColumns = `id, user_id_str, email, password_hash, user_type, created_at, updated_at, is_archived`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.UserID, &u.Email, &u.PasswordHash, &u.UserType, &u.CreatedAt, &u.UpdatedAt, &u.IsArchived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id_str = $1`
	return scanUser(r.q.QueryRow(ctx, query, userID))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.q.QueryRow(ctx, query, email))
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_id_str, email, password_hash, user_type, is_archived)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query, user.UserID, user.Email, user.PasswordHash, user.UserType, user.IsArchived).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	now := time.Now()
	query := `
		UPDATE users
		SET user_id_str = $2, email = $3, password_hash = $4, user_type = $5, is_archived = $6, updated_at = $7
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, user.ID, user.UserID, user.Email, user.PasswordHash, user.UserType, user.IsArchived, now)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: update matched no rows", user.UserID)
	}
	user.UpdatedAt = now
	return nil
}
