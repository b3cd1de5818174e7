// Package session issues, renews, validates and clears the signed session cookie.
//
// The cookie is the only source of truth: no store is consulted on validation.
// The value is an HS256 JWT carrying the user snapshot and its expiry.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/target/mmk-accounts/internal/domain/account"
	domainauth "github.com/target/mmk-accounts/internal/domain/auth"
)

const (
	// DefaultCookieName matches the cookie name browsers already hold for existing sessions.
	DefaultCookieName = "user"
	// DefaultTTL is the sliding session window.
	DefaultTTL = time.Hour
)

var (
	// ErrNoSession means the request carried no session cookie.
	ErrNoSession = errors.New("no session")
	// ErrInvalidSession means the cookie failed signature or shape checks.
	ErrInvalidSession = errors.New("invalid session")
	// ErrExpiredSession means the cookie verified but its expiry has passed.
	ErrExpiredSession = errors.New("session expired")
)

// Options configures a Manager.
type Options struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Domain     string
	Path       string
	Now        func() time.Time
}

// Manager handles the session cookie lifecycle.
type Manager struct {
	secret []byte
	name   string
	ttl    time.Duration
	domain string
	path   string
	now    func() time.Time
	parser *jwt.Parser
}

type claims struct {
	User domainauth.Session `json:"user"`
	jwt.RegisteredClaims
}

// NewManager validates opts and returns a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{
		secret: []byte(opts.Secret),
		name:   opts.CookieName,
		ttl:    opts.TTL,
		domain: opts.Domain,
		path:   opts.Path,
		now:    opts.Now,
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	return m, nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.name }

// Issue creates a fresh session for u.
func (m *Manager) Issue(u *account.User, secure bool) (*http.Cookie, domainauth.Session, error) {
	if u == nil {
		return nil, domainauth.Session{}, errors.New("issue session: nil user")
	}
	return m.Renew(domainauth.SnapshotOf(u), secure)
}

// Renew re-signs s with its expiry moved to now + TTL.
func (m *Manager) Renew(s domainauth.Session, secure bool) (*http.Cookie, domainauth.Session, error) {
	now := m.now().UTC()
	s.ExpiresAt = now.Add(m.ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		User: s,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(s.ExpiresAt)),
		},
	})
	value, err := tok.SignedString(m.secret)
	if err != nil {
		return nil, domainauth.Session{}, fmt.Errorf("sign session: %w", err)
	}

	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}, s, nil
}

// ceilSecond rounds t up to the whole second so the exp claim, which has
// second precision, never ends a session before the embedded expiry does.
func ceilSecond(t time.Time) time.Time {
	if c := t.Truncate(time.Second); c.Before(t) {
		return c.Add(time.Second)
	}
	return t
}

// Validate verifies a cookie value. A bad signature yields ErrInvalidSession and a
// past expiry yields ErrExpiredSession; both mean the cookie should be cleared.
func (m *Manager) Validate(value string) (domainauth.Session, error) {
	if value == "" {
		return domainauth.Session{}, ErrNoSession
	}
	var c claims
	_, err := m.parser.ParseWithClaims(value, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domainauth.Session{}, ErrExpiredSession
	case err != nil:
		return domainauth.Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if c.User.UserID == "" {
		return domainauth.Session{}, ErrInvalidSession
	}
	// The embedded expiry is authoritative even when the JWT exp claim is absent or later.
	if c.User.Expired(m.now()) {
		return domainauth.Session{}, ErrExpiredSession
	}
	return c.User, nil
}

// FromRequest validates the session cookie carried by r.
func (m *Manager) FromRequest(r *http.Request) (domainauth.Session, error) {
	ck, err := r.Cookie(m.name)
	if err != nil {
		return domainauth.Session{}, ErrNoSession
	}
	return m.Validate(ck.Value)
}

// Clear returns a cookie that instructs the browser to delete the session.
func (m *Manager) Clear(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     m.path,
		Domain:   m.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
