package config

import "strings"

// MailConfig selects and configures the outbound mail provider.
type MailConfig struct {
	// Provider is one of log, smtp, sendgrid or mailgun.
	Provider string `env:"MAIL_PROVIDER" envDefault:"log"`
	From     string `env:"MAIL_FROM"     envDefault:"no-reply@localhost"`

	SMTP     SMTPConfig     `envPrefix:"SMTP_"`
	SendGrid SendGridConfig `envPrefix:"SENDGRID_"`
	Mailgun  MailgunConfig  `envPrefix:"MAILGUN_"`
}

// SMTPConfig configures a plain SMTP relay.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"     envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// SendGridConfig configures the SendGrid v3 API.
type SendGridConfig struct {
	APIKey string `env:"API_KEY"`
	// Host overrides the API host; empty means the SendGrid default.
	Host string `env:"HOST"`
}

// MailgunConfig configures the Mailgun API.
type MailgunConfig struct {
	Domain string `env:"DOMAIN"`
	APIKey string `env:"API_KEY"`
	// APIBase selects the region, e.g. https://api.eu.mailgun.net.
	APIBase string `env:"API_BASE"`
}

// Sanitize normalises the provider name and trims credentials.
func (c *MailConfig) Sanitize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = "log"
	}
	c.From = strings.TrimSpace(c.From)
	c.SMTP.Host = strings.TrimSpace(c.SMTP.Host)
	c.SendGrid.APIKey = strings.TrimSpace(c.SendGrid.APIKey)
	c.Mailgun.APIKey = strings.TrimSpace(c.Mailgun.APIKey)
	c.Mailgun.Domain = strings.TrimSpace(c.Mailgun.Domain)
}
