package redis

// Package redis provides Redis-based adapters for the accounts service.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-accounts/internal/domain/account"
	apperrors "github.com/target/mmk-accounts/internal/errors"
	"github.com/target/mmk-accounts/internal/ports"
)

var _ ports.UserStore = (*UserStore)(nil)

// maxPutRetries bounds optimistic-lock retries when concurrent writers touch the same keys.
const maxPutRetries = 5

// UserStore keeps each user as a JSON string under <prefix>user:<id> and
// indexes it under one set per normalized address, <prefix>email:<addr>.
type UserStore struct {
	client redis.UniversalClient
	prefix string
}

// userRecord is the stored shape. It carries the digest, which account.User hides from JSON.
type userRecord struct {
	ID             string                 `json:"id"`
	Name           account.Name           `json:"name"`
	Username       string                 `json:"username"`
	Emails         []account.EmailAddress `json:"emails,omitempty"`
	PendingEmail   string                 `json:"pendingEmail,omitempty"`
	HashedPassword string                 `json:"hashedPassword"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

func toRecord(u *account.User) userRecord {
	return userRecord{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		Emails:         u.Emails,
		PendingEmail:   u.PendingEmail,
		HashedPassword: u.HashedPassword,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (r userRecord) user() *account.User {
	return &account.User{
		ID:             r.ID,
		Name:           r.Name,
		Username:       r.Username,
		Emails:         r.Emails,
		PendingEmail:   r.PendingEmail,
		HashedPassword: r.HashedPassword,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// NewUserStore creates a Redis user store with the default "accounts:" key prefix.
func NewUserStore(client redis.UniversalClient) *UserStore {
	return NewUserStoreWithPrefix(client, "accounts:")
}

// NewUserStoreWithPrefix creates a Redis user store with a custom key prefix.
func NewUserStoreWithPrefix(client redis.UniversalClient, prefix string) *UserStore {
	return &UserStore{client: client, prefix: prefix}
}

func (s *UserStore) userKey(id string) string     { return s.prefix + "user:" + id }
func (s *UserStore) emailKey(email string) string { return s.prefix + "email:" + email }

func (s *UserStore) Get(ctx context.Context, id string) (*account.User, error) {
	if id == "" {
		return nil, fmt.Errorf("user %q: %w", id, account.ErrNotFound)
	}
	u, err := s.load(ctx, s.client, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %q: %w", id, account.ErrNotFound)
	}
	return u, nil
}

// getter is the read surface shared by the client and a watched transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *UserStore) load(ctx context.Context, c getter, id string) (*account.User, error) {
	data, err := c.Get(ctx, s.userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal user %s: %w", id, err)
	}
	return rec.user(), nil
}

// Put upserts user and moves its email index entries in one MULTI/EXEC. A
// username already indexed for another id fails with a conflict AppError.
func (s *UserStore) Put(ctx context.Context, user *account.User) error {
	if user == nil || user.ID == "" {
		return apperrors.ValidationField("id", "user id is required")
	}
	data, err := json.Marshal(toRecord(user))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	userKey := s.userKey(user.ID)
	newKeys := user.EmailKeys()
	usernameKey := s.emailKey(account.NormalizeEmail(user.Username))

	txf := func(tx *redis.Tx) error {
		owners, err := tx.SMembers(ctx, usernameKey).Result()
		if err != nil {
			return fmt.Errorf("redis smembers: %w", err)
		}
		for _, id := range owners {
			if id != user.ID {
				return &apperrors.AppError{
					Code:    apperrors.ErrCodeConflict,
					Message: "This value already exists. Please choose a different one.",
					Field:   "username",
				}
			}
		}

		old, err := s.load(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		var stale []string
		if old != nil {
			for _, k := range old.EmailKeys() {
				if !slices.Contains(newKeys, k) {
					stale = append(stale, k)
				}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey, data, 0)
			for _, k := range stale {
				pipe.SRem(ctx, s.emailKey(k), user.ID)
			}
			for _, k := range newKeys {
				pipe.SAdd(ctx, s.emailKey(k), user.ID)
			}
			return nil
		})
		return err
	}

	for range maxPutRetries {
		err = s.client.Watch(ctx, txf, userKey, usernameKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		if apperrors.IsConflict(err) {
			return err
		}
		return fmt.Errorf("put user %s: %w", user.ID, err)
	}
	return nil
}

// FindByEmail resolves the address through its index set. Index entries
// pointing at missing records are ignored.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	email = account.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	ids, err := s.client.SMembers(ctx, s.emailKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	var found *account.User
	for _, id := range ids {
		u, err := s.load(ctx, s.client, id)
		if err != nil {
			return nil, err
		}
		if u == nil || !u.HasEmail(email) {
			continue
		}
		if found != nil {
			return nil, account.ErrAmbiguousEmail
		}
		found = u
	}
	return found, nil
}
