package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldops/maintenance-service/internal/api/http"
	"github.com/fieldops/maintenance-service/internal/api/http/handlers"
	"github.com/fieldops/maintenance-service/internal/auth"
	"github.com/fieldops/maintenance-service/internal/bootstrap"
	"github.com/fieldops/maintenance-service/internal/config"
	"github.com/fieldops/maintenance-service/internal/observability"
	"github.com/fieldops/maintenance-service/internal/persistence"
	"github.com/fieldops/maintenance-service/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := bootstrap.MemoryRepositories()
	deps := map[string]handlers.Pinger{"postgres": nil, "redis": nil}
	if redis.Enabled() {
		deps["redis"] = redis
	}
	if pool := pg.PoolHandle(); pool != nil {
		repos = bootstrap.PostgresRepositories(pool)
		deps["postgres"] = pg
	} else {
		logger.Warn("running with in-memory storage; data is lost on restart")
	}

	metrics := observability.NewMetrics()
	opts := bootstrap.Options{Metrics: metrics, Logger: logger}
	if cfg.Notification.Enabled && redis.Enabled() {
		opts.Push = redis
	}
	services := bootstrap.NewServices(cfg, repos, opts)
	worker.StartNotificationWorker(services.Notifications, logger)

	authMiddleware := auth.NewAuthMiddleware(services.Auth.TokenManager(), repos.Users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, metrics),
		Users:          handlers.NewUsersHandler(services.Auth, services.Notifications),
		Equipment:      handlers.NewEquipmentHandler(services.Equipment),
		Tickets:        handlers.NewTicketsHandler(services.Lifecycle, services.Verification, services.Comments),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
