package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
)

func TestHealthCheck(t *testing.T) {
	store := NewPersistence(t.TempDir())
	assert.NoError(t, store.HealthCheck(t.Context()))

	missing := NewPersistence("/nonexistent/leadion-test")
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func TestNewPersistence_FileURL(t *testing.T) {
	store := NewPersistence("file://" + t.TempDir())
	assert.NoError(t, store.HealthCheck(t.Context()))
}

func TestUserRepository(t *testing.T) {
	store := NewPersistence(t.TempDir())

	user := &models.User{
		Email:        "ada@engines.com",
		Name:         "Ada Lovelace",
		PasswordHash: "hash",
		Role:         models.RoleMember,
		Status:       models.UserActive,
	}
	require.NoError(t, store.Users().Create(t.Context(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := store.Users().ByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@engines.com", byID.Email)
	// The password hash must survive the round trip or logins break.
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := store.Users().ByEmail(t.Context(), "ada@engines.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID.Name = "Augusta Ada King"
	require.NoError(t, store.Users().Update(t.Context(), byID))

	updated, err := store.Users().ByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Augusta Ada King", updated.Name)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
}

func TestUserRepository_Errors(t *testing.T) {
	store := NewPersistence(t.TempDir())

	user := &models.User{Email: "ada@engines.com"}
	require.NoError(t, store.Users().Create(t.Context(), user))

	err := store.Users().Create(t.Context(), &models.User{Email: "ada@engines.com"})
	assert.True(t, persistence.IsUserAlreadyExists(err))

	_, err = store.Users().ByID(t.Context(), "missing")
	assert.True(t, persistence.IsUserNotFound(err))

	_, err = store.Users().ByEmail(t.Context(), "missing@engines.com")
	assert.True(t, persistence.IsUserNotFound(err))

	err = store.Users().Update(t.Context(), &models.User{ID: "missing"})
	assert.True(t, persistence.IsUserNotFound(err))
}

func TestSessionRepository(t *testing.T) {
	store := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	session := &models.Session{
		Token:      "token-1",
		UserID:     "user-1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
		LastSeenAt: now,
	}
	require.NoError(t, store.Sessions().Create(t.Context(), session))

	found, err := store.Sessions().ByToken(t.Context(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", found.UserID)

	seen := now.Add(time.Minute)
	require.NoError(t, store.Sessions().Touch(t.Context(), "token-1", seen))

	touched, err := store.Sessions().ByToken(t.Context(), "token-1")
	require.NoError(t, err)
	assert.WithinDuration(t, seen, touched.LastSeenAt, time.Second)

	require.NoError(t, store.Sessions().Delete(t.Context(), "token-1"))

	_, err = store.Sessions().ByToken(t.Context(), "token-1")
	assert.True(t, persistence.IsSessionNotFound(err))
}

func TestSessionRepository_DeleteByUser(t *testing.T) {
	store := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	for _, s := range []*models.Session{
		{Token: "token-1", UserID: "user-1", ExpiresAt: now.Add(time.Hour)},
		{Token: "token-2", UserID: "user-1", ExpiresAt: now.Add(time.Hour)},
		{Token: "token-3", UserID: "user-2", ExpiresAt: now.Add(time.Hour)},
	} {
		require.NoError(t, store.Sessions().Create(t.Context(), s))
	}

	require.NoError(t, store.Sessions().DeleteByUser(t.Context(), "user-1"))

	_, err := store.Sessions().ByToken(t.Context(), "token-1")
	assert.True(t, persistence.IsSessionNotFound(err))

	_, err = store.Sessions().ByToken(t.Context(), "token-3")
	assert.NoError(t, err)
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	store := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	for _, s := range []*models.Session{
		{Token: "live-1", UserID: "user-1", ExpiresAt: now.Add(time.Hour)},
		{Token: "dead-1", UserID: "user-1", ExpiresAt: now.Add(-time.Hour)},
		{Token: "dead-2", UserID: "user-2", ExpiresAt: now.Add(-time.Minute)},
	} {
		require.NoError(t, store.Sessions().Create(t.Context(), s))
	}

	removed, err := store.Sessions().DeleteExpired(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	active, err := store.Sessions().CountActive(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestRunRepository(t *testing.T) {
	store := NewPersistence(t.TempDir())

	run := &models.CampaignRun{
		UserID: "user-1",
		Status: models.RunStatusPending,
	}
	require.NoError(t, store.Runs().Create(t.Context(), run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.StartedAt.IsZero())

	found, err := store.Runs().ByID(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPending, found.Status)

	found.Status = models.RunStatusRunning
	require.NoError(t, store.Runs().Update(t.Context(), found))

	updated, err := store.Runs().ByID(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, updated.Status)

	_, err = store.Runs().ByID(t.Context(), "missing")
	assert.True(t, persistence.IsRunNotFound(err))

	err = store.Runs().Update(t.Context(), &models.CampaignRun{ID: "missing"})
	assert.True(t, persistence.IsRunNotFound(err))
}

func TestRunRepository_ByUserOrdering(t *testing.T) {
	store := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	older := &models.CampaignRun{UserID: "user-1", Status: models.RunStatusCompleted, StartedAt: now.Add(-time.Hour)}
	newer := &models.CampaignRun{UserID: "user-1", Status: models.RunStatusCompleted, StartedAt: now}
	other := &models.CampaignRun{UserID: "user-2", Status: models.RunStatusCompleted, StartedAt: now}

	for _, run := range []*models.CampaignRun{older, newer, other} {
		require.NoError(t, store.Runs().Create(t.Context(), run))
	}

	runs, err := store.Runs().ByUser(t.Context(), "user-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Most recent first.
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
}

func TestRunRepository_ActiveByUser(t *testing.T) {
	store := NewPersistence(t.TempDir())

	active, err := store.Runs().ActiveByUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	done := &models.CampaignRun{UserID: "user-1", Status: models.RunStatusCompleted}
	require.NoError(t, store.Runs().Create(t.Context(), done))

	active, err = store.Runs().ActiveByUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	pending := &models.CampaignRun{UserID: "user-1", Status: models.RunStatusPending}
	require.NoError(t, store.Runs().Create(t.Context(), pending))

	active, err = store.Runs().ActiveByUser(t.Context(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, pending.ID, active.ID)
}
