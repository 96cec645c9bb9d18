package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Phone]; exists {
		return ErrUserExists
	}
	if user.Accounts == nil {
		user.Accounts = make(map[string]string)
	}
	r.users[user.Phone] = user
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[phone]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) SetDefaultAccount(_ context.Context, phone, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[phone]
	if !ok {
		return ErrUserNotFound
	}
	user.DefaultAccountID = accountID
	r.users[phone] = user
	return nil
}

func (r *memoryRepository) AttachAccount(_ context.Context, phone, accountID, fundKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[phone]
	if !ok {
		return ErrUserNotFound
	}
	if user.Accounts == nil {
		user.Accounts = make(map[string]string)
	}
	user.Accounts[accountID] = fundKey
	r.users[phone] = user
	return nil
}
