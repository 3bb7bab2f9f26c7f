// Package auth provides user registration, login, and session management on
// top of the persistence layer, with an optional Redis read-through cache
// for session lookups.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukex/leadion/pkg/log"
	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
	"github.com/dukex/leadion/pkg/sessioncache"
)

const (
	// sessionTTL is the default session lifetime.
	sessionTTL = 24 * time.Hour
	// rememberedTTL is the session lifetime when "remember me" is requested.
	rememberedTTL = 30 * 24 * time.Hour

	minPasswordLength = 8
)

var (
	// ErrInvalidCredentials indicates the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDisabled indicates the account cannot authenticate.
	ErrAccountDisabled = errors.New("account is not active")

	// ErrSessionExpired indicates the session exists but is past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrWeakPassword indicates the password does not meet the minimum length.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

// Service implements authentication and session management.
type Service struct {
	persistence persistence.Persistence
	cache       *sessioncache.Cache
	logger      *slog.Logger
	scheduler   *cron.Cron
}

// NewService creates an auth service. cache may be nil to disable session
// caching.
func NewService(store persistence.Persistence, cache *sessioncache.Cache) *Service {
	return &Service{
		persistence: store,
		cache:       cache,
		logger:      log.WithModule("auth"),
	}
}

// Register creates a new active member account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         models.RoleMember,
		Status:       models.UserActive,
	}

	if err := s.persistence.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID)

	return user, nil
}

// Login verifies credentials and creates a session. The session lasts 24
// hours, or 30 days when rememberMe is set.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (*models.Session, error) {
	user, err := s.persistence.Users().ByEmail(ctx, email)
	if err != nil {
		if persistence.IsUserNotFound(err) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status != models.UserActive {
		return nil, ErrAccountDisabled
	}

	now := time.Now().UTC()
	ttl := sessionTTL

	if rememberMe {
		ttl = rememberedTTL
	}

	session := &models.Session{
		Token:      uuid.New().String(),
		UserID:     user.ID,
		Remembered: rememberMe,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastSeenAt: now,
	}

	if err := s.persistence.Sessions().Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("Failed to cache session", "error", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "remembered", rememberMe)

	return session, nil
}

// Logout invalidates a single session.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.cache.Delete(ctx, token); err != nil {
		s.logger.Warn("Failed to evict session from cache", "error", err)
	}

	return s.persistence.Sessions().Delete(ctx, token)
}

// LogoutAll invalidates every session of a user.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.persistence.Sessions().DeleteByUser(ctx, userID)
}

// Session validates a token, expires stale sessions, and touches the
// session's last-seen timestamp.
func (s *Service) Session(ctx context.Context, token string) (*models.Session, error) {
	session, err := s.cache.Get(ctx, token)
	if err != nil {
		s.logger.Warn("Session cache read failed", "error", err)
	}

	if session == nil {
		session, err = s.persistence.Sessions().ByToken(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	if session.Expired() {
		if err := s.Logout(ctx, token); err != nil && !persistence.IsSessionNotFound(err) {
			s.logger.Warn("Failed to remove expired session", "error", err)
		}

		return nil, ErrSessionExpired
	}

	now := time.Now().UTC()
	session.LastSeenAt = now

	if err := s.persistence.Sessions().Touch(ctx, token, now); err != nil {
		s.logger.Warn("Failed to touch session", "error", err)
	}

	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("Failed to cache session", "error", err)
	}

	return session, nil
}

// User resolves the account behind a validated session.
func (s *Service) User(ctx context.Context, session *models.Session) (*models.User, error) {
	return s.persistence.Users().ByID(ctx, session.UserID)
}

// StartCleanup schedules periodic removal of expired sessions. schedule is a
// cron expression; "@hourly" matches the default cleanup cadence.
func (s *Service) StartCleanup(schedule string) error {
	s.scheduler = cron.New()

	_, err := s.scheduler.AddFunc(schedule, func() {
		removed, err := s.persistence.Sessions().DeleteExpired(context.Background())
		if err != nil {
			s.logger.Error("Session cleanup failed", "error", err)

			return
		}

		if removed > 0 {
			s.logger.Info("Expired sessions removed", "count", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session cleanup: %w", err)
	}

	s.scheduler.Start()

	return nil
}

// StopCleanup stops the cleanup scheduler and waits for a running job.
func (s *Service) StopCleanup() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
}
