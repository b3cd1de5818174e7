package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-accounts/config"
	"github.com/target/mmk-accounts/internal/adapters/mail"
	"github.com/target/mmk-accounts/internal/adapters/memory"
	redisstore "github.com/target/mmk-accounts/internal/adapters/redis"
	"github.com/target/mmk-accounts/internal/cryptoutil"
	"github.com/target/mmk-accounts/internal/data"
	httpx "github.com/target/mmk-accounts/internal/http"
	"github.com/target/mmk-accounts/internal/observability/statsd"
	"github.com/target/mmk-accounts/internal/ports"
	"github.com/target/mmk-accounts/internal/service"
	"github.com/target/mmk-accounts/internal/session"
)

// Key derivation labels. Changing one invalidates every credential of that kind.
const (
	purposeActionTokens = "accounts/action-tokens"
	purposeSessions     = "accounts/sessions"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Accounts    *service.AccountService
	Credentials *service.CredentialService
	Sessions    *session.Manager
	Users       ports.UserStore
	Metrics     *statsd.Client
	Health      map[string]httpx.HealthCheck
}

// Close releases resources owned by the container.
func (c *ServiceContainer) Close() error {
	if c == nil || c.Metrics == nil {
		return nil
	}
	return c.Metrics.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB               // required for the postgres backend
	RedisClient redis.UniversalClient // required for the redis backend
	Logger      *slog.Logger
	// Hasher overrides the password cost; nil uses cryptoutil.DefaultArgon2Params.
	Hasher *cryptoutil.PasswordHasher
}

// NewServices wires the account services from configuration.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	users, health, err := newUserStore(deps)
	if err != nil {
		return nil, err
	}

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap mailer: %w", err)
	}
	renderer, err := mail.NewTemplateRenderer(cfg.AppName)
	if err != nil {
		return nil, fmt.Errorf("bootstrap email templates: %w", err)
	}

	metricsCfg := cfg.Observability.Metrics
	metrics, err := statsd.NewClient(statsd.Config{
		Enabled:    metricsCfg.IsEnabled(),
		Address:    metricsCfg.StatsdAddress,
		Prefix:     metricsCfg.Prefix,
		Logger:     logger,
		GlobalTags: map[string]string{"store": string(cfg.Store.Backend)},
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap metrics: %w", err)
	}

	creds, err := service.NewCredentialService(service.CredentialServiceOptions{
		Users:   users,
		Mailer:  mailer,
		Hasher:  deps.Hasher,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := service.NewActionTokens(
		cryptoutil.NewTokenCodec(),
		cryptoutil.DeriveKey(cfg.Secret, purposeActionTokens),
		cfg.Token.TTL,
	)
	if err != nil {
		return nil, err
	}

	accounts, err := service.NewAccountService(service.AccountServiceOptions{
		Credentials: creds,
		Tokens:      tokens,
		Renderer:    renderer,
		BaseURL:     cfg.HTTP.AccountsURL(),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(session.Options{
		Secret:     cryptoutil.DeriveKey(cfg.Secret, purposeSessions),
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Domain:     cfg.HTTP.CookieDomain,
		Path:       cfg.HTTP.BasePath,
	})
	if err != nil {
		return nil, err
	}

	return &ServiceContainer{
		Accounts:    accounts,
		Credentials: creds,
		Sessions:    sessions,
		Users:       users,
		Metrics:     metrics,
		Health:      health,
	}, nil
}

//nolint:ireturn // the backend is chosen at runtime.
func newUserStore(deps *ServiceDeps) (ports.UserStore, map[string]httpx.HealthCheck, error) {
	switch deps.Config.Store.Backend {
	case config.StoreMemory:
		return memory.NewUserStore(), nil, nil
	case config.StoreRedis:
		if deps.RedisClient == nil {
			return nil, nil, errors.New("bootstrap: redis store selected without a redis client")
		}
		client := deps.RedisClient
		return redisstore.NewUserStoreWithPrefix(client, deps.Config.Redis.KeyPrefix),
			map[string]httpx.HealthCheck{"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() }},
			nil
	case config.StorePostgres, "":
		if deps.DB == nil {
			return nil, nil, errors.New("bootstrap: postgres store selected without a database")
		}
		db := deps.DB
		return &data.UserRepo{DB: db},
			map[string]httpx.HealthCheck{"postgres": db.PingContext},
			nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown store backend %q", deps.Config.Store.Backend)
	}
}

//nolint:ireturn // the provider is chosen at runtime.
func newMailer(cfg config.MailConfig, logger *slog.Logger) (ports.Mailer, error) {
	return mail.New(mail.Options{
		Provider: mail.Provider(cfg.Provider),
		From:     cfg.From,
		SMTP: mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		},
		SendGrid: mail.SendGridConfig{APIKey: cfg.SendGrid.APIKey, Host: cfg.SendGrid.Host},
		Mailgun: mail.MailgunConfig{
			Domain:  cfg.Mailgun.Domain,
			APIKey:  cfg.Mailgun.APIKey,
			APIBase: cfg.Mailgun.APIBase,
		},
		Logger: logger,
	})
}
