package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-accounts/internal/cryptoutil"
	"github.com/target/mmk-accounts/internal/domain/account"
)

func TestActionTokens_RoundTrip(t *testing.T) {
	tokens, err := NewActionTokens(nil, "secret", time.Hour)
	require.NoError(t, err)

	tok, err := tokens.Issue(account.ConfirmEmail{UserID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	got, ok := tokens.ConfirmEmail(tok)
	require.True(t, ok)
	assert.Equal(t, account.ConfirmEmail{UserID: "u1", Email: "a@example.com"}, got)

	tok, err = tokens.Issue(account.RecoverPassword{Email: "a@example.com"})
	require.NoError(t, err)
	rec, ok := tokens.RecoverPassword(tok)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", rec.Email)
}

func TestActionTokens_KindsDoNotCross(t *testing.T) {
	tokens, err := NewActionTokens(nil, "secret", time.Hour)
	require.NoError(t, err)

	recover, err := tokens.Issue(account.RecoverPassword{Email: "a@example.com"})
	require.NoError(t, err)
	_, ok := tokens.ConfirmEmail(recover)
	assert.False(t, ok)

	confirm, err := tokens.Issue(account.ConfirmEmail{UserID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	_, ok = tokens.RecoverPassword(confirm)
	assert.False(t, ok)
}

func TestActionTokens_Rejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	codec := cryptoutil.NewTokenCodecWithClock(func() time.Time { return now })
	tokens, err := NewActionTokens(codec, "secret", 10*time.Minute)
	require.NoError(t, err)
	other, err := NewActionTokens(codec, "other-secret", 10*time.Minute)
	require.NoError(t, err)

	tok, err := tokens.Issue(account.ConfirmEmail{UserID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	_, ok := other.ConfirmEmail(tok)
	assert.False(t, ok, "wrong secret")
	_, ok = tokens.ConfirmEmail("")
	assert.False(t, ok, "empty")
	_, ok = tokens.ConfirmEmail("not-a-token")
	assert.False(t, ok, "garbage")

	now = now.Add(11 * time.Minute)
	_, ok = tokens.ConfirmEmail(tok)
	assert.False(t, ok, "expired")
}

func TestActionTokens_RejectsIncompletePayload(t *testing.T) {
	tokens, err := NewActionTokens(nil, "secret", time.Hour)
	require.NoError(t, err)

	tok, err := tokens.Issue(account.ConfirmEmail{Email: "a@example.com"})
	require.NoError(t, err)
	_, ok := tokens.ConfirmEmail(tok)
	assert.False(t, ok)
}

func TestNewActionTokens_RequiresSecret(t *testing.T) {
	_, err := NewActionTokens(nil, "", time.Hour)
	assert.Error(t, err)
}
