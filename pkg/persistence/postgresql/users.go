package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()

	if user.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewUserError("Create", "", fmt.Errorf("failed to generate user ID: %w", err))
		}

		user.ID = id.String()
	}

	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, name, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash,
		user.Role, user.Status, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return persistence.NewUserError("Create", user.ID, persistence.ErrUserAlreadyExists)
		}

		return persistence.NewUserError("Create", user.ID, fmt.Errorf("failed to insert user: %w", err))
	}

	return nil
}

// ByID returns a user by its ID.
func (r *UserRepository) ByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT
			id
		  , email
		  , name
		  , password_hash
		  , role
		  , status
		  , created_at
		  , updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query, id), "ByID", id)
}

// ByEmail returns a user by its email address.
func (r *UserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT
			id
		  , email
		  , name
		  , password_hash
		  , role
		  , status
		  , created_at
		  , updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query, email), "ByEmail", email)
}

// Update persists changes to an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $2, name = $3, password_hash = $4, role = $5, status = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash,
		user.Role, user.Status, user.UpdatedAt)
	if err != nil {
		return persistence.NewUserError("Update", user.ID, fmt.Errorf("failed to update user: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewUserError("Update", user.ID, fmt.Errorf("failed to check update result: %w", err))
	}

	if affected == 0 {
		return persistence.NewUserError("Update", user.ID, persistence.ErrUserNotFound)
	}

	return nil
}

func (r *UserRepository) scanUser(row *sql.Row, op, target string) (*models.User, error) {
	var user models.User

	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.Role, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewUserError(op, target, persistence.ErrUserNotFound)
		}

		return nil, persistence.NewUserError(op, target, fmt.Errorf("failed to scan user: %w", err))
	}

	return &user, nil
}
