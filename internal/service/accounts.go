package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/target/mmk-accounts/internal/domain/account"
	domainauth "github.com/target/mmk-accounts/internal/domain/auth"
	apperrors "github.com/target/mmk-accounts/internal/errors"
	"github.com/target/mmk-accounts/internal/form"
	"github.com/target/mmk-accounts/internal/ports"
)

// State is where a flow ended for this request.
type State string

const (
	// StateForm means the form must be shown again with Values, Errors and Message.
	StateForm               State = "form"
	StateLoggedIn           State = "logged-in"
	StateRegisterPending    State = "register-pending"
	StateEmailConfirmed     State = "email-confirmed"
	StateRecoverPending     State = "recover-pending"
	StateRecovered          State = "recovered"
	StateEdited             State = "edited"
	StateEmailChangePending State = "email-change-pending"
	StateLoggedOut          State = "logged-out"
)

// Outcome is the result of one step of an account flow.
type Outcome struct {
	State   State
	Form    FormName
	Values  map[string]string
	Errors  map[string]string
	Message string
	// User, when set, is the identity the session must now carry.
	User         *account.User
	ClearSession bool
	Effects      []Effect
}

// Request carries the per-request inputs every flow may need.
type Request struct {
	// ReturnURL flows through every link and redirect of a multi-step flow.
	ReturnURL string
}

// AccountServiceOptions groups dependencies for AccountService.
type AccountServiceOptions struct {
	Credentials *CredentialService  // required
	Tokens      *ActionTokens       // required
	Renderer    ports.EmailRenderer // required
	// BaseURL is the absolute URL of the accounts root, e.g. https://app.example.com/accounts.
	// Links in emails are built from it, never from request headers.
	BaseURL string
	Logger  *slog.Logger
}

// AccountService runs the register, confirm-email, login, recover and edit flows.
type AccountService struct {
	creds    *CredentialService
	tokens   *ActionTokens
	renderer ports.EmailRenderer
	baseURL  *url.URL
	logger   *slog.Logger
}

// NewAccountService validates opts and returns the orchestrator.
func NewAccountService(opts AccountServiceOptions) (*AccountService, error) {
	if opts.Credentials == nil {
		return nil, errors.New("account service: credentials are required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("account service: action tokens are required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("account service: email renderer is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("account service: base URL must be absolute, got %q", opts.BaseURL)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AccountService{
		creds:    opts.Credentials,
		tokens:   opts.Tokens,
		renderer: opts.Renderer,
		baseURL:  base,
		logger:   opts.Logger.With("component", "accounts"),
	}, nil
}

// Login authenticates the submitted credentials. Unknown emails and wrong
// passwords produce the same form outcome.
func (s *AccountService) Login(ctx context.Context, src form.Source) (*Outcome, error) {
	res, err := parse(src, FormLogin, form.ParserOptions{})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return formOutcome(FormLogin, res), nil
	}

	u, err := s.creds.Authenticate(ctx, res.Get("email"), res.Get("password"))
	if err != nil {
		return nil, err
	}
	if u == nil {
		out := formOutcome(FormLogin, res)
		out.Message = msgLoginFailed
		return out, nil
	}
	return &Outcome{State: StateLoggedIn, User: u}, nil
}

// Register creates an account and queues its confirmation mail. When the email
// already has an account, a recovery mail for that account is queued instead and
// the visible outcome is the same.
func (s *AccountService) Register(ctx context.Context, src form.Source, req Request) (*Outcome, error) {
	res, err := parse(src, FormRegister, form.ParserOptions{})
	if err != nil {
		return nil, err
	}
	if res.OK() && res.Get("password") != res.Get("confirmPassword") {
		res.AddError("confirmPassword", msgNoMatch)
	}
	if !res.OK() {
		return formOutcome(FormRegister, res), nil
	}

	email := res.Get("email")
	candidate := RegisterInput{
		Name: account.Name{
			GivenName:  res.Get("givenName"),
			MiddleName: res.Get("middleName"),
			FamilyName: res.Get("familyName"),
		},
		Email:    email,
		Password: res.Get("password"),
	}

	u, err := s.creds.Register(ctx, candidate)
	var dup *account.DuplicateError
	switch {
	case errors.As(err, &dup):
		effect, err := s.recoveryEffect(email, &account.User{Name: candidate.Name, Username: email}, req)
		if err != nil {
			return nil, err
		}
		return &Outcome{State: StateRegisterPending, Effects: []Effect{effect}}, nil
	case err != nil:
		return nil, err
	}

	effect, err := s.confirmEffect(EffectConfirmEmail, u, email, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{State: StateRegisterPending, User: u, Effects: []Effect{effect}}, nil
}

// ConfirmEmail consumes an email confirmation token. When a session is present
// it must belong to the user the token was issued for.
func (s *AccountService) ConfirmEmail(ctx context.Context, token string, current *domainauth.Session) (*Outcome, error) {
	payload, ok := s.tokens.ConfirmEmail(token)
	if !ok {
		return nil, errInvalidToken
	}
	if current != nil && current.UserID != payload.UserID {
		return nil, errInvalidToken
	}

	u, err := s.creds.ConfirmEmailAddress(ctx, payload.UserID, payload.Email)
	var dup *account.DuplicateError
	switch {
	case errors.Is(err, account.ErrNotFound):
		return nil, errInvalidToken
	case errors.As(err, &dup):
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConflict, msgEmailAlreadyInUse)
	case err != nil:
		return nil, err
	}
	return &Outcome{State: StateEmailConfirmed, User: u}, nil
}

// RequestRecovery queues a recovery mail when the address has an account. The
// outcome is identical either way.
func (s *AccountService) RequestRecovery(ctx context.Context, src form.Source, req Request) (*Outcome, error) {
	res, err := parse(src, FormRecover, form.ParserOptions{})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return formOutcome(FormRecover, res), nil
	}

	email := res.Get("email")
	u, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return &Outcome{State: StateRecoverPending}, nil
	}
	effect, err := s.recoveryEffect(email, u, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{State: StateRecoverPending, Effects: []Effect{effect}}, nil
}

// RecoveryForm checks a recovery token and returns the completion form.
func (s *AccountService) RecoveryForm(token string) (*Outcome, error) {
	payload, ok := s.tokens.RecoverPassword(token)
	if !ok {
		return nil, errInvalidToken
	}
	return &Outcome{
		State:  StateForm,
		Form:   FormRecoverComplete,
		Values: map[string]string{"email": payload.Email},
	}, nil
}

// CompleteRecovery sets a new password for the account named by the token and
// signs the user in. Mismatched passwords leave the store untouched.
func (s *AccountService) CompleteRecovery(ctx context.Context, token string, src form.Source) (*Outcome, error) {
	payload, ok := s.tokens.RecoverPassword(token)
	if !ok {
		return nil, errInvalidToken
	}

	res, err := parse(src, FormRecoverComplete, form.ParserOptions{})
	if err != nil {
		return nil, err
	}
	if res.OK() && res.Get("password") != res.Get("confirmPassword") {
		res.AddError("confirmPassword", msgNoMatch)
	}
	if !res.OK() {
		out := formOutcome(FormRecoverComplete, res)
		out.Values = withValue(out.Values, "email", payload.Email)
		return out, nil
	}

	u, err := s.creds.Recover(ctx, payload.Email, res.Get("password"))
	if errors.Is(err, account.ErrNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &Outcome{State: StateRecovered, User: u}, nil
}

// EditForm returns the profile form prefilled from the session.
func (s *AccountService) EditForm(sess domainauth.Session) *Outcome {
	return &Outcome{
		State: StateForm,
		Form:  FormEdit,
		Values: map[string]string{
			"givenName":  sess.GivenName,
			"familyName": sess.FamilyName,
			"email":      sess.Email,
		},
	}
}

// Edit updates the signed-in user's profile. A changed email is not applied:
// it is recorded as pending, a confirmation (or, if the address already has an
// account, a recovery mail for that account) goes to the new address, and the
// old address is notified. The session is renewed in every successful case.
func (s *AccountService) Edit(ctx context.Context, sess domainauth.Session, src form.Source, req Request) (*Outcome, error) {
	var newEmail string
	res, err := parse(src, FormEdit, form.ParserOptions{
		OnExpected: func(name string, v form.Value) {
			if name == "email" && v.Text != "" && account.NormalizeEmail(v.Text) != account.NormalizeEmail(sess.Email) {
				newEmail = v.Text
			}
		},
	})
	if err != nil {
		return nil, err
	}
	if res.Get("newPassword") != res.Get("confirmNewPassword") {
		res.AddError("password", msgPasswordsNoMatch)
	}
	if !res.OK() {
		return formOutcome(FormEdit, res), nil
	}

	stored, err := s.creds.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "account no longer exists")
		}
		return nil, err
	}

	patch := UserPatch{NewPassword: res.Get("newPassword")}
	if v := res.Get("givenName"); v != "" {
		patch.GivenName = &v
	}
	if v := res.Get("familyName"); v != "" {
		patch.FamilyName = &v
	}
	if newEmail != "" {
		patch.PendingEmail = &newEmail
	}
	u, err := s.creds.Update(ctx, stored, patch)
	if err != nil {
		return nil, err
	}
	if newEmail == "" {
		return &Outcome{State: StateEdited, User: u}, nil
	}

	effects, err := s.emailChangeEffects(ctx, u, newEmail, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{State: StateEmailChangePending, User: u, Effects: effects}, nil
}

// Logout always clears the session.
func (s *AccountService) Logout() *Outcome {
	return &Outcome{State: StateLoggedOut, ClearSession: true}
}

func (s *AccountService) emailChangeEffects(ctx context.Context, u *account.User, newEmail string, req Request) ([]Effect, error) {
	owner, err := s.creds.FindByEmail(ctx, newEmail)
	if err != nil {
		return nil, err
	}

	var first Effect
	if owner != nil && owner.ID != u.ID {
		first, err = s.recoveryEffect(newEmail, owner, req)
	} else {
		first, err = s.confirmEffect(EffectConfirmEmailChange, u, newEmail, req)
	}
	if err != nil {
		return nil, err
	}

	notice, err := s.render(EffectEmailChangeNotification, u.Username, EmailData{User: u, To: u.Username})
	if err != nil {
		return nil, err
	}
	return []Effect{first, notice}, nil
}

func (s *AccountService) confirmEffect(kind EffectKind, u *account.User, email string, req Request) (Effect, error) {
	token, err := s.tokens.Issue(account.ConfirmEmail{UserID: u.ID, Email: email})
	if err != nil {
		return Effect{}, fmt.Errorf("issue confirmation token: %w", err)
	}
	return s.render(kind, email, EmailData{
		User:            u,
		ConfirmationURL: s.link("confirm-email", token, req),
		To:              email,
	})
}

func (s *AccountService) recoveryEffect(email string, u *account.User, req Request) (Effect, error) {
	token, err := s.tokens.Issue(account.RecoverPassword{Email: email})
	if err != nil {
		return Effect{}, fmt.Errorf("issue recovery token: %w", err)
	}
	return s.render(EffectRecoverEmail, email, EmailData{
		User:            u,
		ConfirmationURL: s.link("recover/complete", token, req),
		To:              email,
	})
}

func (s *AccountService) render(kind EffectKind, to string, data EmailData) (Effect, error) {
	msg, err := s.renderer.Render(string(kind), to, data)
	if err != nil {
		return Effect{}, fmt.Errorf("render %s: %w", kind, err)
	}
	return Effect{Kind: kind, Message: msg}, nil
}

// link builds <base>/<path>?return-url=..&token=..
func (s *AccountService) link(path, token string, req Request) string {
	u := *s.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + path
	q := url.Values{}
	if req.ReturnURL != "" {
		q.Set("return-url", req.ReturnURL)
	}
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

var errInvalidToken = apperrors.Unauthorized("This link is invalid or has expired.")

func parse(src form.Source, name FormName, opts form.ParserOptions) (*form.Result, error) {
	if src == nil {
		return nil, apperrors.Validation("form submission is required")
	}
	res, err := src(form.NewParser(accountForms[name], opts))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "unreadable form submission")
	}
	return res, nil
}

// formOutcome re-renders a form with what was submitted, rejected values
// included. Password values are never echoed back.
func formOutcome(name FormName, res *form.Result) *Outcome {
	values := res.Submitted()
	for _, f := range accountForms[name].Fields() {
		if f.Type == form.TypePassword {
			delete(values, f.Name)
		}
	}
	if len(values) == 0 {
		values = nil
	}
	return &Outcome{State: StateForm, Form: name, Values: values, Errors: res.Errors}
}

func withValue(values map[string]string, k, v string) map[string]string {
	if values == nil {
		values = make(map[string]string, 1)
	}
	values[k] = v
	return values
}
