package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-accounts/config"
	"github.com/target/mmk-accounts/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.InitLoggerWithLevel(cfg.Observability.LogLevel)

	if err = bootstrap.ValidateConfig(&cfg); err != nil {
		return err
	}
	logStartupInfo(ctx, logger, &cfg)

	infra, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer infra.close(ctx, logger)

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          infra.db,
		RedisClient: infra.redis,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close metrics failed", "error", cerr)
		}
	}()

	server, err := bootstrap.NewHTTPServer(&bootstrap.HTTPServerConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return bootstrap.ServeHTTP(ctx, server, cfg.HTTP.ShutdownTimeout, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting accounts service",
		"store", cfg.Store.Backend,
		"mail_provider", cfg.Mail.Provider,
		"base_url", cfg.HTTP.AccountsURL(),
		"dev", cfg.IsDev,
	)
}

type infrastructure struct {
	db    *sql.DB
	redis redis.UniversalClient
}

func (i *infrastructure) close(ctx context.Context, logger *slog.Logger) {
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			logger.ErrorContext(ctx, "close database failed", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
}

// initInfrastructure connects only what the selected store backend needs.
func initInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*infrastructure, error) {
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}
	infra := &infrastructure{}

	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := bootstrap.ConnectDB(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		infra.db = db
		if !cfg.Postgres.RunMigrationsOnStart {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
			return infra, nil
		}
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			if cerr := db.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
			}
			return nil, err
		}
	case config.StoreRedis:
		client, err := bootstrap.ConnectRedis(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.redis = client
	case config.StoreMemory:
		logger.WarnContext(ctx, "using in-memory user store; accounts are lost on restart")
	}
	return infra, nil
}
