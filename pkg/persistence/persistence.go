// Package persistence provides the data storage abstraction layer for users,
// sessions, and campaign runs.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/leadion/pkg/models"
)

type Persistence interface {
	Users() UserRepository
	Sessions() SessionRepository
	Runs() RunRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// UserRepository stores user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	ByID(ctx context.Context, id string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// SessionRepository stores authentication sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	ByToken(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
	// DeleteExpired removes sessions past their expiry and reports how many
	// were removed.
	DeleteExpired(ctx context.Context) (int, error)
	Touch(ctx context.Context, token string, lastSeen time.Time) error
	CountActive(ctx context.Context) (int, error)
}

// RunRepository stores campaign run records.
type RunRepository interface {
	Create(ctx context.Context, run *models.CampaignRun) error
	ByID(ctx context.Context, id string) (*models.CampaignRun, error)
	ByUser(ctx context.Context, userID string) ([]*models.CampaignRun, error)
	Update(ctx context.Context, run *models.CampaignRun) error
	// ActiveByUser returns the user's pending or running campaign, or nil
	// when none is in flight.
	ActiveByUser(ctx context.Context, userID string) (*models.CampaignRun, error)
}
