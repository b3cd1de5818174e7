package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/target/mmk-accounts/internal/cryptoutil"
	"github.com/target/mmk-accounts/internal/domain/account"
)

// ActionTokens mints and reads single-purpose action tokens. Every token carries
// its action kind, so a recovery token never decodes as an email confirmation.
type ActionTokens struct {
	codec  *cryptoutil.TokenCodec
	secret string
	ttl    time.Duration
}

type taggedAction struct {
	Kind account.ActionKind `json:"kind"`
	Data json.RawMessage    `json:"data"`
}

// NewActionTokens returns a token issuer. secret should already be purpose-derived.
func NewActionTokens(codec *cryptoutil.TokenCodec, secret string, ttl time.Duration) (*ActionTokens, error) {
	if codec == nil {
		codec = cryptoutil.NewTokenCodec()
	}
	if secret == "" {
		return nil, errors.New("action tokens: secret is required")
	}
	if ttl <= 0 {
		ttl = cryptoutil.DefaultTokenTTL
	}
	return &ActionTokens{codec: codec, secret: secret, ttl: ttl}, nil
}

// Issue encodes a.
func (t *ActionTokens) Issue(a account.Action) (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return t.codec.Encode(taggedAction{Kind: a.Kind(), Data: data}, t.secret, t.ttl)
}

// ConfirmEmail decodes an email confirmation token.
func (t *ActionTokens) ConfirmEmail(token string) (account.ConfirmEmail, bool) {
	var out account.ConfirmEmail
	if !t.decode(token, account.ActionConfirmEmail, &out) || out.UserID == "" || out.Email == "" {
		return account.ConfirmEmail{}, false
	}
	return out, true
}

// RecoverPassword decodes a password recovery token.
func (t *ActionTokens) RecoverPassword(token string) (account.RecoverPassword, bool) {
	var out account.RecoverPassword
	if !t.decode(token, account.ActionRecoverPassword, &out) || out.Email == "" {
		return account.RecoverPassword{}, false
	}
	return out, true
}

func (t *ActionTokens) decode(token string, kind account.ActionKind, dst any) bool {
	if token == "" {
		return false
	}
	var tagged taggedAction
	if !t.codec.Decode(token, t.secret, &tagged) || tagged.Kind != kind {
		return false
	}
	return json.Unmarshal(tagged.Data, dst) == nil
}
