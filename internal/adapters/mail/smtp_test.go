package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-accounts/internal/ports"
)

func TestSMTPMailer_Send(t *testing.T) {
	m, err := NewSMTPMailer("noreply@example.com", SMTPConfig{Host: "mail.example.com", Port: 2525, Username: "u", Password: "p"})
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		assert.Equal(t, "noreply@example.com", from)
		return nil
	}

	err = m.Send(context.Background(), ports.Message{
		To:      "ada@example.com",
		Subject: "Réinitialiser",
		HTML:    "<p>Hello</p>",
		Text:    "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: ada@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: =?utf-8?q?R=C3=A9initialiser?=\r\n")
	assert.Contains(t, gotMsg, "Date: Wed, 01 May 2024 12:00:00 +0000\r\n")
	assert.Contains(t, gotMsg, "multipart/alternative")
	assert.Less(t, strings.Index(gotMsg, "text/plain"), strings.Index(gotMsg, "text/html"))
}

func TestSMTPMailer_Errors(t *testing.T) {
	_, err := NewSMTPMailer("noreply@example.com", SMTPConfig{})
	assert.Error(t, err)

	m, err := NewSMTPMailer("noreply@example.com", SMTPConfig{Host: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:587", m.addr)
	assert.Nil(t, m.auth)

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 try later") }
	assert.ErrorContains(t, m.Send(context.Background(), ports.Message{To: "a@example.com", Text: "x"}), "421 try later")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, ports.Message{To: "a@example.com"}), context.Canceled)
}
