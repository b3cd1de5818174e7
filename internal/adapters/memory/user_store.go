// Package memory provides in-process adapters for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/target/mmk-accounts/internal/domain/account"
	apperrors "github.com/target/mmk-accounts/internal/errors"
	"github.com/target/mmk-accounts/internal/ports"
)

var _ ports.UserStore = (*UserStore)(nil)

// UserStore keeps users in a map. Records are cloned on the way in and out so
// callers never share memory with the store.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*account.User
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*account.User)}
}

// Get returns the user with id.
func (s *UserStore) Get(ctx context.Context, id string) (*account.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", id, account.ErrNotFound)
	}
	return u.Clone(), nil
}

// Put upserts user. A username held by another record is a conflict.
func (s *UserStore) Put(ctx context.Context, user *account.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil || user.ID == "" {
		return errors.New("put user: id is required")
	}
	username := account.NormalizeEmail(user.Username)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if id != user.ID && username != "" && account.NormalizeEmail(u.Username) == username {
			return &apperrors.AppError{
				Code:    apperrors.ErrCodeConflict,
				Message: "This value already exists. Please choose a different one.",
				Field:   "username",
			}
		}
	}
	s.users[user.ID] = user.Clone()
	return nil
}

// FindByEmail scans all users for one whose username or confirmed address matches.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if account.NormalizeEmail(email) == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *account.User
	for _, u := range s.users {
		if !u.HasEmail(email) {
			continue
		}
		if found != nil {
			return nil, account.ErrAmbiguousEmail
		}
		found = u
	}
	return found.Clone(), nil
}

// Len reports the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
