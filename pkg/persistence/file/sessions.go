package file

import (
	"context"
	"time"

	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
)

const sessionsCollection = "sessions"

// SessionRepository stores sessions in a JSON collection file.
type SessionRepository struct {
	store *store
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessions []*models.Session
	if err := r.store.load(sessionsCollection, &sessions); err != nil {
		return persistence.NewSessionError("Create", session.Token, err)
	}

	sessions = append(sessions, session)

	if err := r.store.save(sessionsCollection, sessions); err != nil {
		return persistence.NewSessionError("Create", session.Token, err)
	}

	return nil
}

func (r *SessionRepository) ByToken(ctx context.Context, token string) (*models.Session, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessions []*models.Session
	if err := r.store.load(sessionsCollection, &sessions); err != nil {
		return nil, persistence.NewSessionError("ByToken", token, err)
	}

	for _, session := range sessions {
		if session.Token == token {
			return session, nil
		}
	}

	return nil, persistence.NewSessionError("ByToken", token, persistence.ErrSessionNotFound)
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessions []*models.Session
	if err := r.store.load(sessionsCollection, &sessions); err != nil {
		return persistence.NewSessionError("Delete", token, err)
	}

	for i, session := range sessions {
		if session.Token == token {
			sessions = append(sessions[:i], sessions[i+1:]...)

			if err := r.store.save(sessionsCollection, sessions); err != nil {
				return persistence.NewSessionError("Delete", token, err)
			}

			return nil
		}
	}

	return persistence.NewSessionError("Delete", token, persistence.ErrSessionNotFound)
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessions []*models.Session
	if err := r.store.load(sessionsCollection, &sessions); err != nil {
		return persistence.NewSessionError("DeleteByUser", "", err)
	}

	kept := sessions[:0]

	for _, session := range sessions {
		if session.UserID != userID {
			kept = append(kept, session)
		}
	}

	if err := r.store.save(sessionsCollection, kept); err != nil {
		return persistence.NewSessionError("DeleteByUser", "", err)
	}

	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessions []*models.Session
	if err := r.store.load(sessionsCollection, &sessions); err != nil {
		return 0, persistence.NewSessionError("DeleteExpired", "", err)
	}

	kept := sessions[:0]
	removed := 0

	for _, session := range sessions {
		if session.Expired() {
			removed++
		} else {
			kept = append(kept, session)
		}
	}

	if removed > 0 {
		if err := r.store.save(sessionsCollection, kept); err != nil {
			return 0, persistence.NewSessionError("DeleteExpired", "", err)
		}
	}

	return removed, nil
}

func (r *SessionRepository) Touch(ctx context.Context, token string, lastSeen time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessions []*models.Session
	if err := r.store.load(sessionsCollection, &sessions); err != nil {
		return persistence.NewSessionError("Touch", token, err)
	}

	for _, session := range sessions {
		if session.Token == token {
			session.LastSeenAt = lastSeen

			if err := r.store.save(sessionsCollection, sessions); err != nil {
				return persistence.NewSessionError("Touch", token, err)
			}

			return nil
		}
	}

	return persistence.NewSessionError("Touch", token, persistence.ErrSessionNotFound)
}

func (r *SessionRepository) CountActive(ctx context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessions []*models.Session
	if err := r.store.load(sessionsCollection, &sessions); err != nil {
		return 0, persistence.NewSessionError("CountActive", "", err)
	}

	active := 0

	for _, session := range sessions {
		if !session.Expired() {
			active++
		}
	}

	return active, nil
}
