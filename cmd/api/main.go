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

	httptransport "github.com/tooltime-pro/session-guard/internal/api/http"
	"github.com/tooltime-pro/session-guard/internal/api/http/handlers"
	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/config"
	"github.com/tooltime-pro/session-guard/internal/events"
	"github.com/tooltime-pro/session-guard/internal/identity"
	"github.com/tooltime-pro/session-guard/internal/observability"
	"github.com/tooltime-pro/session-guard/internal/persistence"
	"github.com/tooltime-pro/session-guard/internal/repository"
	"github.com/tooltime-pro/session-guard/internal/service"
	"github.com/tooltime-pro/session-guard/internal/session"
	"github.com/tooltime-pro/session-guard/internal/worker"
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
		// The process keeps serving; repositories report not-configured.
		logger.Error("failed to connect postgres", zap.Error(err))
		pg = &persistence.Postgres{}
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()
	readiness := map[string]handlers.Pinger{}
	if cfg.Postgres.DSN != "" {
		readiness["postgres"] = pg
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	var provider identity.Provider
	switch cfg.Identity.Mode {
	case config.IdentityModeOIDC:
		provider = identity.NewOIDCProvider(ctx, cfg.Identity, nil)
		if !cfg.Identity.Configured() {
			logger.Warn("identity provider not configured; protected routes will return CONFIG_ERROR")
		}
	default:
		provider = identity.NewLocalProvider(tokenManager, userRepo)
	}

	var store session.Store
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		readiness["redis"] = redis
		store = session.NewRedisStore(redis.Client, cfg.Session.RedisPrefix, cfg.Session.SlotTTL())
	case config.SessionStoreMemory:
		memStore := session.NewMemoryStore(cfg.Session.SlotTTL())
		defer memStore.Close()
		store = memStore
	default:
		if pool == nil {
			logger.Warn("session store not configured; enforcement is inactive")
			store = session.UnconfiguredStore{}
		} else {
			store = session.NewPostgresStore(userRepo)
		}
	}

	registry := session.NewRegistry(store, logger, metrics)
	signOut := session.NewSignOut(provider, registry, logger)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification), logger)

	sessionService := service.NewSessionService(registry, signOut, dispatcher, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Sessions:          sessionService,
		Dispatcher:        dispatcher,
		TokenManager:      tokenManager,
		Logger:            logger,
	})
	authMiddleware := auth.NewAuthMiddleware(auth.NewValidator(provider), userRepo, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Users:          handlers.NewUsersHandler(authService),
		Password:       handlers.NewPasswordHandler(authService),
		Sessions:       handlers.NewSessionHandler(sessionService),
		Company:        handlers.NewCompanyHandler(authService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		LocalAuth:      cfg.Identity.Mode == config.IdentityModeLocal,
	})

	go func() {
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
