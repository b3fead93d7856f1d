// Package cli implements the maintctl administration commands.
package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/bootstrap"
	"github.com/fieldops/maintenance-service/internal/config"
	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/observability"
	"github.com/fieldops/maintenance-service/internal/persistence"
)

// operator is the identity administrative commands act as.
var operator = domain.Actor{ID: "maintctl", Role: domain.RoleAdmin}

type environment struct {
	cfg      *config.Config
	logger   *zap.Logger
	pg       *persistence.Postgres
	repos    bootstrap.Repositories
	services *bootstrap.Services
}

func openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	repos := bootstrap.PostgresRepositories(pg.PoolHandle())
	return &environment{
		cfg:      cfg,
		logger:   logger,
		pg:       pg,
		repos:    repos,
		services: bootstrap.NewServices(cfg, repos, bootstrap.Options{Logger: logger}),
	}, nil
}

func (e *environment) Close() {
	e.pg.Close()
	_ = e.logger.Sync()
}
