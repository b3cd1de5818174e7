package mail

import (
	"context"
	"log/slog"

	"github.com/target/mmk-accounts/internal/ports"
)

var _ ports.Mailer = (*LogMailer)(nil)

// LogMailer writes messages to the log instead of delivering them. Development only.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a LogMailer writing to logger, or slog.Default when nil.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With("component", "mail")}
}

func (m *LogMailer) Send(ctx context.Context, msg ports.Message) error {
	m.logger.InfoContext(ctx, "email not delivered (log provider)",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}
