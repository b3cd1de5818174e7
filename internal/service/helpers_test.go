package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/mmk-accounts/internal/adapters/memory"
	"github.com/target/mmk-accounts/internal/cryptoutil"
	"github.com/target/mmk-accounts/internal/domain/account"
	"github.com/target/mmk-accounts/internal/form"
	"github.com/target/mmk-accounts/internal/ports"
)

var testHasherParams = cryptoutil.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// recordingMailer keeps every delivered message and can be told to fail for one recipient.
type recordingMailer struct {
	mu     sync.Mutex
	sent   []ports.Message
	failTo string
}

func (m *recordingMailer) Send(_ context.Context, msg ports.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo != "" && msg.To == m.failTo {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []ports.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Message(nil), m.sent...)
}

// linkRenderer renders the template name as subject and the confirmation link as text.
type linkRenderer struct{}

func (linkRenderer) Render(template, to string, data any) (ports.Message, error) {
	d, ok := data.(EmailData)
	if !ok {
		return ports.Message{}, fmt.Errorf("unexpected data %T", data)
	}
	return ports.Message{To: to, Subject: template, Text: d.ConfirmationURL}, nil
}

func testHasher(t *testing.T) *cryptoutil.PasswordHasher {
	t.Helper()
	h, err := cryptoutil.NewPasswordHasher(testHasherParams)
	require.NoError(t, err)
	return h
}

type harness struct {
	users    *memory.UserStore
	mailer   *recordingMailer
	tokens   *ActionTokens
	creds    *CredentialService
	accounts *AccountService
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:  memory.NewUserStore(),
		mailer: &recordingMailer{},
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	hasher := testHasher(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	seq := 0
	var err error
	h.creds, err = NewCredentialService(CredentialServiceOptions{
		Users:  h.users,
		Mailer: h.mailer,
		Hasher: hasher,
		Logger: logger,
		Now:    func() time.Time { return h.now },
		NewID: func() string {
			seq++
			return fmt.Sprintf("user-%d", seq)
		},
	})
	require.NoError(t, err)

	h.tokens, err = NewActionTokens(nil, "action-secret", time.Hour)
	require.NoError(t, err)

	h.accounts, err = NewAccountService(AccountServiceOptions{
		Credentials: h.creds,
		Tokens:      h.tokens,
		Renderer:    linkRenderer{},
		BaseURL:     "https://app.example.com/accounts/",
		Logger:      logger,
	})
	require.NoError(t, err)
	return h
}

// seed stores a confirmed account with the given password.
func (h *harness) seed(t *testing.T, id, email, password string) *account.User {
	t.Helper()
	digest, err := h.creds.hasher.Hash(password)
	require.NoError(t, err)
	u := &account.User{
		ID:             id,
		Name:           account.Name{GivenName: "Ada", FamilyName: "Lovelace"},
		Username:       email,
		Emails:         []account.EmailAddress{{Value: email}},
		HashedPassword: digest,
		CreatedAt:      h.now,
		UpdatedAt:      h.now,
	}
	require.NoError(t, h.users.Put(context.Background(), u))
	return u
}

func values(kv ...string) form.Source {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return form.FromValues(v)
}

func tokenOf(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	tok := u.Query().Get("token")
	require.NotEmpty(t, tok)
	return tok
}
