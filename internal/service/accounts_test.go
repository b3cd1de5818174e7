package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-accounts/internal/domain/account"
	domainauth "github.com/target/mmk-accounts/internal/domain/auth"
	apperrors "github.com/target/mmk-accounts/internal/errors"
	"github.com/target/mmk-accounts/internal/form"
	"github.com/target/mmk-accounts/internal/mocks"
	"github.com/target/mmk-accounts/internal/ports"
)

func registration(email string) form.Source {
	return values(
		"givenName", "Grace",
		"familyName", "Hopper",
		"email", email,
		"password", "cobol-forever",
		"confirmPassword", "cobol-forever",
	)
}

func TestNewAccountService_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		opts AccountServiceOptions
	}{
		{"no credentials", AccountServiceOptions{Tokens: h.tokens, Renderer: linkRenderer{}, BaseURL: "https://x"}},
		{"no tokens", AccountServiceOptions{Credentials: h.creds, Renderer: linkRenderer{}, BaseURL: "https://x"}},
		{"no renderer", AccountServiceOptions{Credentials: h.creds, Tokens: h.tokens, BaseURL: "https://x"}},
		{"relative base", AccountServiceOptions{Credentials: h.creds, Tokens: h.tokens, Renderer: linkRenderer{}, BaseURL: "/accounts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAccountService(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestAccountService_RegisterThenConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.accounts.Register(ctx, registration("grace@example.com"), Request{ReturnURL: "/dashboard"})
	require.NoError(t, err)
	assert.Equal(t, StateRegisterPending, out.State)
	require.NotNil(t, out.User)
	require.Len(t, out.Effects, 1)

	effect := out.Effects[0]
	assert.Equal(t, EffectConfirmEmail, effect.Kind)
	assert.Equal(t, "grace@example.com", effect.Message.To)
	assert.True(t, strings.HasPrefix(effect.Message.Text, "https://app.example.com/accounts/confirm-email?"))
	assert.Contains(t, effect.Message.Text, "return-url=%2Fdashboard")

	confirmed, err := h.accounts.ConfirmEmail(ctx, tokenOf(t, effect.Message.Text), nil)
	require.NoError(t, err)
	assert.Equal(t, StateEmailConfirmed, confirmed.State)
	assert.Equal(t, []account.EmailAddress{{Value: "grace@example.com"}}, confirmed.User.Emails)
}

func TestAccountService_RegisterFormErrors(t *testing.T) {
	h := newHarness(t)
	src := values(
		"givenName", "Grace",
		"familyName", "Hopper",
		"email", "grace@example.com",
		"password", "cobol-forever",
		"confirmPassword", "cobol-never",
	)

	out, err := h.accounts.Register(context.Background(), src, Request{})
	require.NoError(t, err)
	assert.Equal(t, StateForm, out.State)
	assert.Equal(t, FormRegister, out.Form)
	assert.Equal(t, map[string]string{"confirmPassword": msgNoMatch}, out.Errors)
	assert.NotContains(t, out.Values, "password")
	assert.NotContains(t, out.Values, "confirmPassword")
	assert.Equal(t, "grace@example.com", out.Values["email"])
	assert.Empty(t, out.Effects)
	assert.Equal(t, 0, h.users.Len())

	out, err = h.accounts.Register(context.Background(), values("email", "not-an-email", "password", "short"), Request{})
	require.NoError(t, err)
	assert.Equal(t, form.ReasonEmail, out.Errors["email"])
	assert.Equal(t, form.ReasonMinLength, out.Errors["password"])
	assert.Equal(t, form.ReasonRequired, out.Errors["givenName"])
	assert.Equal(t, "not-an-email", out.Values["email"], "rejected input is echoed back")
	assert.NotContains(t, out.Values, "password")
}

func TestAccountService_RegisterEchoesOverlongName(t *testing.T) {
	h := newHarness(t)
	long := strings.Repeat("x", nameMaxLength+1)

	out, err := h.accounts.Register(context.Background(), values(
		"givenName", long,
		"familyName", "Hopper",
		"email", "grace@example.com",
		"password", "cobol-forever",
		"confirmPassword", "cobol-forever",
	), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateForm, out.State)
	assert.Equal(t, form.ReasonMaxLength, out.Errors["givenName"])
	assert.Equal(t, long, out.Values["givenName"])
	assert.Equal(t, "Hopper", out.Values["familyName"])
	assert.NotContains(t, out.Values, "password")
	assert.NotContains(t, out.Values, "confirmPassword")
}

func TestAccountService_RegisterDuplicateSendsRecovery(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "u1", "ada@example.com", "analytical-engine")

	out, err := h.accounts.Register(context.Background(), registration("ada@example.com"), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateRegisterPending, out.State)
	assert.Nil(t, out.User, "a duplicate registration must not sign anyone in")
	require.Len(t, out.Effects, 1)
	assert.Equal(t, EffectRecoverEmail, out.Effects[0].Kind)
	assert.Contains(t, out.Effects[0].Message.Text, "/accounts/recover/complete?")
	assert.Equal(t, 1, h.users.Len())
}

func TestAccountService_Login(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "u1", "ada@example.com", "analytical-engine")
	ctx := context.Background()

	out, err := h.accounts.Login(ctx, values("email", "ada@example.com", "password", "analytical-engine"))
	require.NoError(t, err)
	assert.Equal(t, StateLoggedIn, out.State)
	assert.Equal(t, "u1", out.User.ID)

	for _, src := range []form.Source{
		values("email", "ada@example.com", "password", "wrong"),
		values("email", "nobody@example.com", "password", "analytical-engine"),
	} {
		out, err = h.accounts.Login(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, StateForm, out.State)
		assert.Equal(t, msgLoginFailed, out.Message)
		assert.Nil(t, out.User)
		assert.NotContains(t, out.Values, "password")
	}

	out, err = h.accounts.Login(ctx, values())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": form.ReasonRequired, "password": form.ReasonRequired}, out.Errors)
	assert.Empty(t, out.Message)
}

func TestAccountService_Recovery(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "u1", "ada@example.com", "analytical-engine")
	ctx := context.Background()

	out, err := h.accounts.RequestRecovery(ctx, values("email", "nobody@example.com"), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateRecoverPending, out.State)
	assert.Empty(t, out.Effects)

	out, err = h.accounts.RequestRecovery(ctx, values("email", "ada@example.com"), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateRecoverPending, out.State)
	require.Len(t, out.Effects, 1)
	token := tokenOf(t, out.Effects[0].Message.Text)

	shown, err := h.accounts.RecoveryForm(token)
	require.NoError(t, err)
	assert.Equal(t, FormRecoverComplete, shown.Form)
	assert.Equal(t, "ada@example.com", shown.Values["email"])

	mismatch, err := h.accounts.CompleteRecovery(ctx, token, values("password", "new-password-1", "confirmPassword", "new-password-2"))
	require.NoError(t, err)
	assert.Equal(t, StateForm, mismatch.State)
	assert.Equal(t, msgNoMatch, mismatch.Errors["confirmPassword"])
	assert.Equal(t, "ada@example.com", mismatch.Values["email"])

	done, err := h.accounts.CompleteRecovery(ctx, token, values("password", "new-password-1", "confirmPassword", "new-password-1"))
	require.NoError(t, err)
	assert.Equal(t, StateRecovered, done.State)
	assert.Equal(t, "u1", done.User.ID)

	login, err := h.accounts.Login(ctx, values("email", "ada@example.com", "password", "new-password-1"))
	require.NoError(t, err)
	assert.Equal(t, StateLoggedIn, login.State)
}

func TestAccountService_InvalidTokens(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "u1", "ada@example.com", "analytical-engine")
	ctx := context.Background()

	recoverTok, err := h.tokens.Issue(account.RecoverPassword{Email: "ada@example.com"})
	require.NoError(t, err)
	confirmTok, err := h.tokens.Issue(account.ConfirmEmail{UserID: "u1", Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = h.accounts.ConfirmEmail(ctx, recoverTok, nil)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = h.accounts.RecoveryForm(confirmTok)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = h.accounts.ConfirmEmail(ctx, confirmTok, &domainauth.Session{UserID: "someone-else"})
	assert.True(t, apperrors.IsUnauthorized(err))

	ghost, err := h.tokens.Issue(account.ConfirmEmail{UserID: "ghost", Email: "g@example.com"})
	require.NoError(t, err)
	_, err = h.accounts.ConfirmEmail(ctx, ghost, nil)
	assert.True(t, apperrors.IsUnauthorized(err))

	gone, err := h.tokens.Issue(account.RecoverPassword{Email: "gone@example.com"})
	require.NoError(t, err)
	_, err = h.accounts.CompleteRecovery(ctx, gone, values("password", "new-password-1", "confirmPassword", "new-password-1"))
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAccountService_ConfirmEmailConflict(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "u1", "ada@example.com", "analytical-engine")
	h.seed(t, "u2", "taken@example.com", "another-password")

	tok, err := h.tokens.Issue(account.ConfirmEmail{UserID: "u1", Email: "taken@example.com"})
	require.NoError(t, err)
	_, err = h.accounts.ConfirmEmail(context.Background(), tok, nil)
	assert.True(t, apperrors.IsConflict(err))
}

func TestAccountService_EditProfile(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "u1", "ada@example.com", "analytical-engine")
	sess := domainauth.Session{UserID: "u1", GivenName: "Ada", FamilyName: "Lovelace", Email: "ada@example.com"}

	prefill := h.accounts.EditForm(sess)
	assert.Equal(t, "ada@example.com", prefill.Values["email"])

	out, err := h.accounts.Edit(context.Background(), sess, values("givenName", "Augusta", "email", "ada@example.com"), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateEdited, out.State)
	assert.Equal(t, "Augusta", out.User.Name.GivenName)
	assert.Empty(t, out.Effects)

	out, err = h.accounts.Edit(context.Background(), sess, values("newPassword", "new-password-1", "confirmNewPassword", "other"), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateForm, out.State)
	assert.Equal(t, msgPasswordsNoMatch, out.Errors["password"])
}

func TestAccountService_EditEmailChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, "u1", "ada@example.com", "analytical-engine")
	sess := domainauth.Session{UserID: "u1", Email: "ada@example.com"}

	out, err := h.accounts.Edit(ctx, sess, values("email", "countess@example.com"), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateEmailChangePending, out.State)
	assert.Equal(t, "countess@example.com", out.User.PendingEmail)
	assert.Equal(t, "ada@example.com", out.User.Username, "address changes only after confirmation")
	require.Len(t, out.Effects, 2)
	assert.Equal(t, EffectConfirmEmailChange, out.Effects[0].Kind)
	assert.Equal(t, "countess@example.com", out.Effects[0].Message.To)
	assert.Equal(t, EffectEmailChangeNotification, out.Effects[1].Kind)
	assert.Equal(t, "ada@example.com", out.Effects[1].Message.To)

	confirmed, err := h.accounts.ConfirmEmail(ctx, tokenOf(t, out.Effects[0].Message.Text), &sess)
	require.NoError(t, err)
	assert.Equal(t, "countess@example.com", confirmed.User.Username)
	assert.Empty(t, confirmed.User.PendingEmail)
}

func TestAccountService_EditEmailOwnedByAnother(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "u1", "ada@example.com", "analytical-engine")
	h.seed(t, "u2", "taken@example.com", "another-password")
	sess := domainauth.Session{UserID: "u1", Email: "ada@example.com"}

	out, err := h.accounts.Edit(context.Background(), sess, values("email", "taken@example.com"), Request{})
	require.NoError(t, err)
	require.Len(t, out.Effects, 2)
	assert.Equal(t, EffectRecoverEmail, out.Effects[0].Kind)
	assert.Equal(t, "taken@example.com", out.Effects[0].Message.To)
}

func TestAccountService_Logout(t *testing.T) {
	out := newHarness(t).accounts.Logout()
	assert.Equal(t, StateLoggedOut, out.State)
	assert.True(t, out.ClearSession)
}

func TestAccountService_RenderFailure(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockEmailRenderer(ctrl)
	renderer.EXPECT().
		Render(string(EffectConfirmEmail), "grace@example.com", gomock.Any()).
		Return(ports.Message{}, assert.AnError)

	svc, err := NewAccountService(AccountServiceOptions{
		Credentials: h.creds,
		Tokens:      h.tokens,
		Renderer:    renderer,
		BaseURL:     "https://app.example.com/accounts",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registration("grace@example.com"), Request{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAccountService_NilSource(t *testing.T) {
	_, err := newHarness(t).accounts.Login(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))
}
