package mail

// Package mail provides ports.Mailer implementations and the account email templates.

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/mmk-accounts/internal/ports"
)

// Provider selects the mail transport.
type Provider string

const (
	ProviderLog      Provider = "log"
	ProviderSMTP     Provider = "smtp"
	ProviderSendGrid Provider = "sendgrid"
	ProviderMailgun  Provider = "mailgun"
)

// Options selects and configures a transport. Only the section matching Provider is read.
type Options struct {
	Provider Provider
	From     string
	SMTP     SMTPConfig
	SendGrid SendGridConfig
	Mailgun  MailgunConfig
	Logger   *slog.Logger
}

// New returns the mailer for opts.Provider.
func New(opts Options) (ports.Mailer, error) {
	if strings.TrimSpace(opts.From) == "" && opts.Provider != ProviderLog && opts.Provider != "" {
		return nil, errors.New("mail: from address is required")
	}
	switch opts.Provider {
	case ProviderLog, "":
		return NewLogMailer(opts.Logger), nil
	case ProviderSMTP:
		return NewSMTPMailer(opts.From, opts.SMTP)
	case ProviderSendGrid:
		return NewSendGridMailer(opts.From, opts.SendGrid)
	case ProviderMailgun:
		return NewMailgunMailer(opts.From, opts.Mailgun)
	default:
		return nil, fmt.Errorf("mail: unknown provider %q", opts.Provider)
	}
}
