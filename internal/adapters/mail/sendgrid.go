package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/target/mmk-accounts/internal/ports"
)

var _ ports.Mailer = (*SendGridMailer)(nil)

// SendGridConfig holds the API settings. Host overrides the API origin, mainly for tests.
type SendGridConfig struct {
	APIKey string
	Host   string
}

// SendGridMailer delivers through the SendGrid v3 mail send API.
type SendGridMailer struct {
	from   *sgmail.Email
	client *sendgrid.Client
}

// NewSendGridMailer validates cfg and returns a mailer.
func NewSendGridMailer(from string, cfg SendGridConfig) (*SendGridMailer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid: api key is required")
	}
	client := sendgrid.NewSendClient(cfg.APIKey)
	if cfg.Host != "" {
		req := sendgrid.GetRequest(cfg.APIKey, "/v3/mail/send", cfg.Host)
		req.Method = http.MethodPost
		client = &sendgrid.Client{Request: req}
	}
	return &SendGridMailer{from: sgmail.NewEmail("", from), client: client}, nil
}

func (m *SendGridMailer) Send(ctx context.Context, msg ports.Message) error {
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid send: unexpected status %d", resp.StatusCode)
	}
	return nil
}
