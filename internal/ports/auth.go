package ports

// Package ports defines interfaces (hexagonal ports) for account-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"

	"github.com/target/mmk-accounts/internal/domain/account"
)

// UserStore persists user records. Any backing store must satisfy this contract.
type UserStore interface {
	// Get returns the user with id or an error wrapping account.ErrNotFound.
	Get(ctx context.Context, id string) (*account.User, error)

	// Put upserts the user keyed by ID.
	Put(ctx context.Context, user *account.User) error

	// FindByEmail returns the user owning email, nil when none does, and
	// account.ErrAmbiguousEmail when more than one record matches.
	FindByEmail(ctx context.Context, email string) (*account.User, error)
}

// Message is a fully rendered outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered messages. Transport details stay behind this port.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EmailRenderer renders a named email template into a message for the given recipient.
type EmailRenderer interface {
	Render(template string, to string, data any) (Message, error)
}
