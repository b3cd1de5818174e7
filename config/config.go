package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Session and action token configuration
//   - database.go: Store backend, database and Redis configuration
//   - http.go: HTTP server configuration
//   - mail.go: Outbound mail configuration
//   - observability.go: Metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Secret is the deployment-wide key. Session and token keys are derived from it per purpose.
	Secret string `env:"ACCOUNTS_SECRET,required,notEmpty"`

	// AppName prefixes email subjects.
	AppName string `env:"APP_NAME" envDefault:"Accounts"`

	HTTP    HTTPConfig
	Session SessionConfig
	Token   TokenConfig

	// Store selects where user records live.
	Store    StoreConfig
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	Mail MailConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.AppName = strings.TrimSpace(c.AppName)
	c.HTTP.Sanitize()
	c.Session.Sanitize()
	c.Token.Sanitize()
	c.Redis.Sanitize()
	c.Mail.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
