package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
)

// SessionRepository handles session-related database operations.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (token, user_id, remembered, created_at, expires_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.Token, session.UserID, session.Remembered,
		session.CreatedAt, session.ExpiresAt, session.LastSeenAt)
	if err != nil {
		return persistence.NewSessionError("Create", session.Token, fmt.Errorf("failed to insert session: %w", err))
	}

	return nil
}

// ByToken returns a session by its token.
func (r *SessionRepository) ByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT
			token
		  , user_id
		  , remembered
		  , created_at
		  , expires_at
		  , last_seen_at
		FROM sessions
		WHERE token = $1
	`

	var session models.Session

	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&session.Token, &session.UserID, &session.Remembered,
		&session.CreatedAt, &session.ExpiresAt, &session.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSessionError("ByToken", token, persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("ByToken", token, fmt.Errorf("failed to scan session: %w", err))
	}

	return &session, nil
}

// Delete removes a session by its token.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	if err != nil {
		return persistence.NewSessionError("Delete", token, fmt.Errorf("failed to delete session: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewSessionError("Delete", token, fmt.Errorf("failed to check delete result: %w", err))
	}

	if affected == 0 {
		return persistence.NewSessionError("Delete", token, persistence.ErrSessionNotFound)
	}

	return nil
}

// DeleteByUser removes all of a user's sessions.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	if err != nil {
		return persistence.NewSessionError("DeleteByUser", "", fmt.Errorf("failed to delete sessions for user %s: %w", userID, err))
	}

	return nil
}

// DeleteExpired removes all sessions past their expiry.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < NOW()")
	if err != nil {
		return 0, persistence.NewSessionError("DeleteExpired", "", fmt.Errorf("failed to delete expired sessions: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, persistence.NewSessionError("DeleteExpired", "", fmt.Errorf("failed to count deleted sessions: %w", err))
	}

	return int(affected), nil
}

// Touch updates a session's last-seen timestamp.
func (r *SessionRepository) Touch(ctx context.Context, token string, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE sessions SET last_seen_at = $2 WHERE token = $1", token, lastSeen)
	if err != nil {
		return persistence.NewSessionError("Touch", token, fmt.Errorf("failed to touch session: %w", err))
	}

	return nil
}

// CountActive counts sessions that have not yet expired.
func (r *SessionRepository) CountActive(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions WHERE expires_at >= NOW()").Scan(&count)
	if err != nil {
		return 0, persistence.NewSessionError("CountActive", "", fmt.Errorf("failed to count active sessions: %w", err))
	}

	return count, nil
}
