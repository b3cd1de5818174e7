package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-accounts/internal/domain/account"
	"github.com/target/mmk-accounts/internal/ports"
)

// EffectKind names a side effect. Mail effects share their name with the email template.
type EffectKind string

const (
	EffectConfirmEmail            EffectKind = "confirm-email"
	EffectRecoverEmail            EffectKind = "recover-email"
	EffectConfirmEmailChange      EffectKind = "confirm-email-change-email"
	EffectEmailChangeNotification EffectKind = "email-change-notification-email"
)

// Effect is a rendered message queued by a flow. Flows never send mail themselves.
type Effect struct {
	Kind    EffectKind
	Message ports.Message
}

// EmailData is the template model for every account email.
type EmailData struct {
	User            *account.User
	ConfirmationURL string
	To              string
}

// DispatchReport summarizes a Dispatch call.
type DispatchReport struct {
	Sent   int
	Failed int
}

const (
	dispatchConcurrency = 4
	dispatchTimeout     = 30 * time.Second
)

// Dispatch sends effects concurrently and waits for all of them. Failures are
// logged and counted but never returned.
func (s *AccountService) Dispatch(ctx context.Context, effects []Effect) DispatchReport {
	if len(effects) == 0 {
		return DispatchReport{}
	}
	// Delivery outlives a client that disconnects mid-request.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	var sent, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(dispatchConcurrency)
	for _, e := range effects {
		g.Go(func() error {
			if err := s.creds.SendEmail(ctx, e.Message); err != nil {
				failed.Add(1)
				s.logger.ErrorContext(ctx, "account email not delivered",
					"kind", string(e.Kind),
					"recipient_domain", recipientDomain(e.Message.To),
					"error", err,
				)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return DispatchReport{Sent: int(sent.Load()), Failed: int(failed.Load())}
}

func recipientDomain(to string) string {
	if i := strings.LastIndexByte(to, '@'); i >= 0 {
		return to[i+1:]
	}
	return ""
}
