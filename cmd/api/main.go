package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/accomplishment-service/internal/api/dto"
	httptransport "github.com/spec-kit/accomplishment-service/internal/api/http"
	"github.com/spec-kit/accomplishment-service/internal/api/http/handlers"
	"github.com/spec-kit/accomplishment-service/internal/auth"
	"github.com/spec-kit/accomplishment-service/internal/config"
	"github.com/spec-kit/accomplishment-service/internal/events"
	"github.com/spec-kit/accomplishment-service/internal/observability"
	"github.com/spec-kit/accomplishment-service/internal/persistence"
	"github.com/spec-kit/accomplishment-service/internal/pii"
	"github.com/spec-kit/accomplishment-service/internal/ratelimit"
	"github.com/spec-kit/accomplishment-service/internal/repository"
	"github.com/spec-kit/accomplishment-service/internal/service"
	"github.com/spec-kit/accomplishment-service/internal/worker"
	"github.com/spec-kit/accomplishment-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var accounts repository.AccountRepository
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.Files, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		accounts = repository.NewPostgresAccountRepository(pg.PoolHandle())
	} else {
		accounts = repository.NewMemoryAccountRepository()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	if cfg.PII.Generated {
		logger.Warn("PII keys not configured; using per-process keys, stored data will be unreadable after restart")
	}
	codec, err := pii.NewCodec(cfg.PII.EncryptionKey, cfg.PII.IndexKey)
	if err != nil {
		logger.Fatal("failed to init pii codec", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(func(e events.Event, err error) {
		logger.Warn("event handler failed", zap.String("event_type", string(e.Type)), zap.Error(err))
	})
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Accounts: accounts,
		Codec:    codec,
		Events:   dispatcher,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	accountService := service.NewAccountService(service.AccountDependencies{
		Accounts: accounts,
		Codec:    codec,
		Events:   dispatcher,
		Logger:   logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accounts)

	var loginLimiter *ratelimit.Limiter
	if redis.Enabled() {
		loginLimiter = ratelimit.NewLimiter(ratelimit.NewRedisCounter(redis.Client), "ratelimit:login:", cfg.RateLimit.LoginPerMinute, time.Minute, logger)
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	validate := dto.NewValidator()
	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
		"postgres": pg,
		"redis":    redis,
	}, metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           handlers.NewAuthHandler(authService, validate, cfg.Auth.BootstrapAdminEmployeeID),
		Accounts:       handlers.NewAccountsHandler(accountService, validate),
		AuthMiddleware: authMiddleware,
		LoginLimiter:   loginLimiter,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
