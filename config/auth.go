package config

import "time"

const (
	minSessionTTL     = time.Minute
	minActionTokenTTL = time.Minute
)

// SessionConfig controls the session cookie.
type SessionConfig struct {
	// CookieName defaults to "user", the name browsers already hold.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"user"`
	// TTL is the sliding session window; every request renews it.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"1h"`
}

// Sanitize clamps the session window.
func (c *SessionConfig) Sanitize() {
	if c.CookieName == "" {
		c.CookieName = "user"
	}
	if c.TTL < minSessionTTL {
		c.TTL = minSessionTTL
	}
}

// TokenConfig controls the emailed action tokens.
type TokenConfig struct {
	// TTL is how long confirmation and recovery links stay valid.
	TTL time.Duration `env:"ACTION_TOKEN_TTL" envDefault:"60m"`
}

// Sanitize clamps the token lifetime.
func (c *TokenConfig) Sanitize() {
	if c.TTL < minActionTokenTTL {
		c.TTL = minActionTokenTTL
	}
}
