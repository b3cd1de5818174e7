package account

// Package account contains the domain types for self-service user accounts.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a direct lookup by id misses.
	ErrNotFound = errors.New("user not found")
	// ErrAmbiguousEmail is returned when more than one record claims the same email address.
	ErrAmbiguousEmail = errors.New("more than one account with same email address")
)

// Name holds the personal name parts of a user.
type Name struct {
	GivenName  string `json:"givenName"`
	MiddleName string `json:"middleName,omitempty"`
	FamilyName string `json:"familyName"`
}

// EmailAddress is a confirmed address owned by a user.
type EmailAddress struct {
	Value string `json:"value"`
}

// User is an account. Username is the verified email address and acts as the natural key.
// HashedPassword never leaves the service layer: it is excluded from JSON and
// adapters persist it through their own record types.
type User struct {
	ID             string         `json:"id"`
	Name           Name           `json:"name"`
	Username       string         `json:"username"`
	Emails         []EmailAddress `json:"emails,omitempty"`
	PendingEmail   string         `json:"pendingEmail,omitempty"`
	HashedPassword string         `json:"-"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Emails != nil {
		c.Emails = append([]EmailAddress(nil), u.Emails...)
	}
	return &c
}

// Public returns a copy with the password digest removed.
func (u *User) Public() *User {
	c := u.Clone()
	if c != nil {
		c.HashedPassword = ""
	}
	return c
}

// HasEmail reports whether email matches the username or any confirmed address.
func (u *User) HasEmail(email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	if NormalizeEmail(u.Username) == email {
		return true
	}
	for _, e := range u.Emails {
		if NormalizeEmail(e.Value) == email {
			return true
		}
	}
	return false
}

// EmailKeys returns the distinct normalized addresses a store should index for the user.
func (u *User) EmailKeys() []string {
	seen := make(map[string]struct{}, len(u.Emails)+1)
	keys := make([]string, 0, len(u.Emails)+1)
	add := func(v string) {
		v = NormalizeEmail(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		keys = append(keys, v)
	}
	add(u.Username)
	for _, e := range u.Emails {
		add(e.Value)
	}
	return keys
}

// NormalizeEmail lowercases and trims an email address for comparisons and index keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DuplicateError is returned by registration when the email already belongs to an account.
type DuplicateError struct {
	Existing *User
}

func (e *DuplicateError) Error() string {
	if e.Existing == nil {
		return "email already taken"
	}
	return fmt.Sprintf("email already taken by user %s", e.Existing.ID)
}
