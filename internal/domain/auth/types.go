package auth

// Package auth contains domain-level types for authenticated sessions.
// It is pure and free of framework/adapter concerns.

import (
	"time"

	"github.com/target/mmk-accounts/internal/domain/account"
)

// Session is the client-held snapshot of the authenticated user.
// It is never stored server-side; the signed cookie is the source of truth.
type Session struct {
	UserID     string    `json:"id"`
	GivenName  string    `json:"givenName"`
	FamilyName string    `json:"familyName"`
	Email      string    `json:"username"`
	ExpiresAt  time.Time `json:"expires"`
}

// SnapshotOf builds a session snapshot for u. ExpiresAt is left for the issuer to set.
func SnapshotOf(u *account.User) Session {
	return Session{
		UserID:     u.ID,
		GivenName:  u.Name.GivenName,
		FamilyName: u.Name.FamilyName,
		Email:      u.Username,
	}
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
