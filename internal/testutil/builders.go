package testutil

import (
	"time"

	"github.com/target/mmk-accounts/internal/domain/account"
)

// UserBuilder provides a fluent interface for building account.User values for tests.
type UserBuilder struct {
	u account.User
}

// NewUser creates a builder with a confirmed address and a placeholder digest.
func NewUser(id, email string) *UserBuilder {
	now := TestTime()
	return &UserBuilder{u: account.User{
		ID:             id,
		Name:           account.Name{GivenName: "Ada", FamilyName: "Lovelace"},
		Username:       email,
		Emails:         []account.EmailAddress{{Value: email}},
		HashedPassword: "$argon2id$placeholder",
		CreatedAt:      now,
		UpdatedAt:      now,
	}}
}

// WithName sets the given and family names.
func (b *UserBuilder) WithName(given, family string) *UserBuilder {
	b.u.Name.GivenName = given
	b.u.Name.FamilyName = family
	return b
}

// WithEmails replaces the confirmed addresses.
func (b *UserBuilder) WithEmails(emails ...string) *UserBuilder {
	b.u.Emails = nil
	for _, e := range emails {
		b.u.Emails = append(b.u.Emails, account.EmailAddress{Value: e})
	}
	return b
}

// WithPendingEmail sets the unconfirmed new address.
func (b *UserBuilder) WithPendingEmail(email string) *UserBuilder {
	b.u.PendingEmail = email
	return b
}

// WithDigest sets the stored password digest.
func (b *UserBuilder) WithDigest(digest string) *UserBuilder {
	b.u.HashedPassword = digest
	return b
}

// Build returns a copy of the user.
func (b *UserBuilder) Build() *account.User {
	return b.u.Clone()
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// FixedTimeFunc returns a function that always returns the same time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}
