package memory

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserRepository creates an empty user store.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists {
		return apperrors.AlreadyExists("user", "id", user.ID)
	}
	for _, u := range r.users {
		if u.Secret == user.Secret {
			return apperrors.AlreadyExists("user", "secret", "[redacted]")
		}
	}
	r.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	u = cloneUser(u)
	return &u, nil
}

func (r *UserRepository) GetByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepository) GetBySecret(_ context.Context, secret string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Secret == secret {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, apperrors.Unauthorized("unknown secret")
}

func (r *UserRepository) Shelve(_ context.Context, userID, bookID string, shelf domain.Shelf) (*domain.User, error) {
	return r.mutate(userID, func(u *domain.User) { u.Shelve(bookID, shelf) })
}

func (r *UserRepository) Unshelve(_ context.Context, userID, bookID string, shelf domain.Shelf) (*domain.User, error) {
	return r.mutate(userID, func(u *domain.User) { u.Unshelve(bookID, shelf) })
}

func (r *UserRepository) mutate(userID string, fn func(*domain.User)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, apperrors.NotFound("user", userID)
	}
	u = cloneUser(u)
	fn(&u)
	r.users[userID] = u
	out := cloneUser(u)
	return &out, nil
}
