package file

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
)

const usersCollection = "users"

// UserRepository stores users in a JSON collection file.
type UserRepository struct {
	store *store
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []*models.User
	if err := r.store.load(usersCollection, &users); err != nil {
		return persistence.NewUserError("Create", user.ID, err)
	}

	for _, existing := range users {
		if existing.Email == user.Email {
			return persistence.NewUserError("Create", user.ID, persistence.ErrUserAlreadyExists)
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	users = append(users, user)

	if err := r.store.save(usersCollection, users); err != nil {
		return persistence.NewUserError("Create", user.ID, err)
	}

	return nil
}

func (r *UserRepository) ByID(ctx context.Context, id string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []*models.User
	if err := r.store.load(usersCollection, &users); err != nil {
		return nil, persistence.NewUserError("ByID", id, err)
	}

	for _, user := range users {
		if user.ID == id {
			return user, nil
		}
	}

	return nil, persistence.NewUserError("ByID", id, persistence.ErrUserNotFound)
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []*models.User
	if err := r.store.load(usersCollection, &users); err != nil {
		return nil, persistence.NewUserError("ByEmail", email, err)
	}

	for _, user := range users {
		if user.Email == email {
			return user, nil
		}
	}

	return nil, persistence.NewUserError("ByEmail", email, persistence.ErrUserNotFound)
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []*models.User
	if err := r.store.load(usersCollection, &users); err != nil {
		return persistence.NewUserError("Update", user.ID, err)
	}

	for i, existing := range users {
		if existing.ID == user.ID {
			user.UpdatedAt = time.Now().UTC()
			users[i] = user

			if err := r.store.save(usersCollection, users); err != nil {
				return persistence.NewUserError("Update", user.ID, err)
			}

			return nil
		}
	}

	return persistence.NewUserError("Update", user.ID, persistence.ErrUserNotFound)
}
