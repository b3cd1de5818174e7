package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/mmk-accounts/internal/cryptoutil"
	"github.com/target/mmk-accounts/internal/domain/account"
	apperrors "github.com/target/mmk-accounts/internal/errors"
	"github.com/target/mmk-accounts/internal/observability/metrics"
	"github.com/target/mmk-accounts/internal/observability/statsd"
	"github.com/target/mmk-accounts/internal/ports"
)

// CredentialServiceOptions groups dependencies for CredentialService.
type CredentialServiceOptions struct {
	Users   ports.UserStore // required
	Mailer  ports.Mailer    // required
	Hasher  *cryptoutil.PasswordHasher
	Metrics statsd.Sink
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

// CredentialService owns password hashing, registration with duplicate detection,
// recovery, profile updates and email confirmation.
type CredentialService struct {
	users   ports.UserStore
	mailer  ports.Mailer
	hasher  *cryptoutil.PasswordHasher
	metrics statsd.Sink
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// RegisterInput is a registration candidate. Password is plaintext and is discarded after hashing.
type RegisterInput struct {
	Name     account.Name
	Email    string
	Password string
}

// UserPatch describes an in-place profile change. Nil fields are left untouched.
type UserPatch struct {
	GivenName    *string
	MiddleName   *string
	FamilyName   *string
	PendingEmail *string
	NewPassword  string
}

// NewCredentialService validates opts. Missing collaborators fail here, not at first use.
func NewCredentialService(opts CredentialServiceOptions) (*CredentialService, error) {
	if opts.Users == nil {
		return nil, errors.New("credential service: user store is required")
	}
	if opts.Mailer == nil {
		return nil, errors.New("credential service: mailer is required")
	}
	if opts.Hasher == nil {
		h, err := cryptoutil.NewPasswordHasher(cryptoutil.DefaultArgon2Params)
		if err != nil {
			return nil, fmt.Errorf("credential service: %w", err)
		}
		opts.Hasher = h
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &CredentialService{
		users:   opts.Users,
		mailer:  opts.Mailer,
		hasher:  opts.Hasher,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "credentials"),
		now:     opts.Now,
		newID:   opts.NewID,
	}, nil
}

// Get returns the stored user by id. A miss wraps account.ErrNotFound.
func (s *CredentialService) Get(ctx context.Context, id string) (*account.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// FindByEmail returns the user owning email, or nil.
func (s *CredentialService) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	u, err := s.users.FindByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when password matches, and nil for both an unknown
// email and a wrong password. A miss still pays for one hash comparison.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*account.User, error) {
	start := s.now()
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		s.emit(metrics.FlowLogin, metrics.ResultError, start, err)
		return nil, err
	}
	if u == nil {
		s.hasher.Burn(password)
		s.emit(metrics.FlowLogin, metrics.ResultRejected, start, nil)
		return nil, nil
	}

	ok, err := s.hasher.Verify(password, u.HashedPassword)
	if err != nil {
		// Unreadable digests count as a mismatch.
		s.logger.WarnContext(ctx, "stored password digest unreadable", "user_id", u.ID, "error", err)
		ok = false
	}
	if !ok {
		s.emit(metrics.FlowLogin, metrics.ResultRejected, start, nil)
		return nil, nil
	}
	s.emit(metrics.FlowLogin, metrics.ResultSuccess, start, nil)
	return u.Public(), nil
}

// Register creates an account. When the email already belongs to an account it
// fails with *account.DuplicateError carrying that account.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (*account.User, error) {
	start := s.now()
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	if in.Password == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}

	existing, err := s.FindByEmail(ctx, email)
	if err != nil {
		s.emit(metrics.FlowRegister, metrics.ResultError, start, err)
		return nil, err
	}
	if existing != nil {
		s.emit(metrics.FlowRegister, metrics.ResultDuplicate, start, nil)
		return nil, &account.DuplicateError{Existing: existing.Public()}
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.emit(metrics.FlowRegister, metrics.ResultError, start, err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := &account.User{
		ID:             s.newID(),
		Name:           in.Name,
		Username:       email,
		HashedPassword: digest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err = s.users.Put(ctx, u); err != nil {
		// A concurrent registration can win the race past the lookup above.
		if apperrors.IsConflict(err) {
			if winner, findErr := s.FindByEmail(ctx, email); findErr == nil && winner != nil {
				s.emit(metrics.FlowRegister, metrics.ResultDuplicate, start, nil)
				return nil, &account.DuplicateError{Existing: winner.Public()}
			}
		}
		s.emit(metrics.FlowRegister, metrics.ResultError, start, err)
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.emit(metrics.FlowRegister, metrics.ResultSuccess, start, nil)
	s.logger.InfoContext(ctx, "account registered", "user_id", u.ID)
	return u.Public(), nil
}

// Update applies patch to existing and persists it. A new password is always
// re-hashed with a fresh salt.
func (s *CredentialService) Update(ctx context.Context, existing *account.User, patch UserPatch) (*account.User, error) {
	if existing == nil || existing.ID == "" {
		return nil, errors.New("update user: existing user is required")
	}
	if existing.HashedPassword == "" && patch.NewPassword == "" {
		// Public copies carry no digest; persisting one would erase the password.
		return nil, errors.New("update user: stored record required, got public copy")
	}
	start := s.now()
	u := existing.Clone()
	if patch.GivenName != nil {
		u.Name.GivenName = *patch.GivenName
	}
	if patch.MiddleName != nil {
		u.Name.MiddleName = *patch.MiddleName
	}
	if patch.FamilyName != nil {
		u.Name.FamilyName = *patch.FamilyName
	}
	if patch.PendingEmail != nil {
		u.PendingEmail = *patch.PendingEmail
	}
	if patch.NewPassword != "" {
		digest, err := s.hasher.Hash(patch.NewPassword)
		if err != nil {
			s.emit(metrics.FlowEdit, metrics.ResultError, start, err)
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.HashedPassword = digest
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.users.Put(ctx, u); err != nil {
		s.emit(metrics.FlowEdit, metrics.ResultError, start, err)
		return nil, fmt.Errorf("save user %s: %w", u.ID, err)
	}
	s.emit(metrics.FlowEdit, metrics.ResultSuccess, start, nil)
	return u.Public(), nil
}

// Recover replaces the password of the account owning email. Unknown emails fail
// closed with account.ErrNotFound.
func (s *CredentialService) Recover(ctx context.Context, email, newPassword string) (*account.User, error) {
	start := s.now()
	if newPassword == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.emit(metrics.FlowRecover, metrics.ResultError, start, err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		s.emit(metrics.FlowRecover, metrics.ResultError, start, err)
		return nil, err
	}
	if u == nil {
		s.emit(metrics.FlowRecover, metrics.ResultRejected, start, nil)
		return nil, fmt.Errorf("recover %q: %w", account.NormalizeEmail(email), account.ErrNotFound)
	}

	u = u.Clone()
	u.HashedPassword = digest
	u.UpdatedAt = s.now().UTC()
	if err = s.users.Put(ctx, u); err != nil {
		s.emit(metrics.FlowRecover, metrics.ResultError, start, err)
		return nil, fmt.Errorf("save user %s: %w", u.ID, err)
	}
	s.emit(metrics.FlowRecover, metrics.ResultSuccess, start, nil)
	s.logger.InfoContext(ctx, "password recovered", "user_id", u.ID)
	return u.Public(), nil
}

// ConfirmEmailAddress makes email the verified primary address of the user.
// It fails with *account.DuplicateError when another account already owns email.
func (s *CredentialService) ConfirmEmailAddress(ctx context.Context, userID, email string) (*account.User, error) {
	start := s.now()
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		s.emit(metrics.FlowConfirm, metrics.ResultError, start, err)
		return nil, err
	}
	owner, err := s.FindByEmail(ctx, email)
	if err != nil {
		s.emit(metrics.FlowConfirm, metrics.ResultError, start, err)
		return nil, err
	}
	if owner != nil && owner.ID != u.ID {
		s.emit(metrics.FlowConfirm, metrics.ResultDuplicate, start, nil)
		return nil, &account.DuplicateError{Existing: owner.Public()}
	}

	u = u.Clone()
	u.Emails = []account.EmailAddress{{Value: email}}
	u.Username = email
	if account.NormalizeEmail(u.PendingEmail) == account.NormalizeEmail(email) {
		u.PendingEmail = ""
	}
	u.UpdatedAt = s.now().UTC()
	if err = s.users.Put(ctx, u); err != nil {
		s.emit(metrics.FlowConfirm, metrics.ResultError, start, err)
		return nil, fmt.Errorf("save user %s: %w", u.ID, err)
	}

	// Read back so callers see exactly what the store holds.
	stored, err := s.Get(ctx, userID)
	if err != nil {
		s.emit(metrics.FlowConfirm, metrics.ResultError, start, err)
		return nil, err
	}
	s.emit(metrics.FlowConfirm, metrics.ResultSuccess, start, nil)
	return stored.Public(), nil
}

// SendEmail hands a rendered message to the mailer.
func (s *CredentialService) SendEmail(ctx context.Context, msg ports.Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("send email: recipient is required")
	}
	start := s.now()
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.emit(metrics.FlowMail, metrics.ResultError, start, err)
		return fmt.Errorf("send email: %w", err)
	}
	s.emit(metrics.FlowMail, metrics.ResultSuccess, start, nil)
	return nil
}

func (s *CredentialService) emit(flow, result string, start time.Time, err error) {
	metrics.EmitAccountEvent(s.metrics, metrics.AccountMetric{
		Flow:     flow,
		Result:   result,
		Duration: s.now().Sub(start),
		Err:      err,
	})
}
