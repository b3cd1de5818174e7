package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/target/mmk-accounts/internal/ports"
)

var _ ports.Mailer = (*MailgunMailer)(nil)

// MailgunConfig holds the API settings. APIBase selects the region, e.g. mailgun.APIBaseEU.
type MailgunConfig struct {
	Domain  string
	APIKey  string
	APIBase string
}

// MailgunMailer delivers through the Mailgun messages API.
type MailgunMailer struct {
	from string
	mg   *mailgun.MailgunImpl
}

// NewMailgunMailer validates cfg and returns a mailer.
func NewMailgunMailer(from string, cfg MailgunConfig) (*MailgunMailer, error) {
	if cfg.Domain == "" || cfg.APIKey == "" {
		return nil, errors.New("mailgun: domain and api key are required")
	}
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	return &MailgunMailer{from: from, mg: mg}, nil
}

func (m *MailgunMailer) Send(ctx context.Context, msg ports.Message) error {
	message := m.mg.NewMessage(m.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	if _, _, err := m.mg.Send(ctx, message); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
