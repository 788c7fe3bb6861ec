// Package main provides the entry point for the Artifex repository server.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/artifexhq/artifex/domain/derive"
	"github.com/artifexhq/artifex/domain/health"
	"github.com/artifexhq/artifex/domain/ontology"
	"github.com/artifexhq/artifex/domain/repository"
	"github.com/artifexhq/artifex/internal/config"
	"github.com/artifexhq/artifex/internal/database"
	"github.com/artifexhq/artifex/internal/server"
	"github.com/artifexhq/artifex/internal/storage/memory"
	"github.com/artifexhq/artifex/internal/storage/postgres"
	"github.com/artifexhq/artifex/pkg/logger"
	"github.com/artifexhq/artifex/pkg/metrics"
)

func main() {
	// Load .env files if present (for local development). Load() won't
	// overwrite existing vars, Overload() will.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		// Logging
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		storageModule(),
		metrics.Module,
		server.Module,

		// Domain modules
		derive.Module,
		repository.Module,
		health.Module,

		fx.Invoke(seedOntologies),
	).Run()
}

// storageModule selects the persistence backend before the fx graph is
// built, so the memory driver never constructs a database pool. The
// variable is re-read through config.Config by everything downstream.
func storageModule() fx.Option {
	driver := strings.ToLower(os.Getenv("REPO_STORAGE_DRIVER"))
	if driver == "memory" {
		return memory.Module
	}
	return fx.Options(
		database.Module,
		postgres.Module,
	)
}

// seedOntologies loads ontology YAML files from the configured seed
// directory at startup. Already-present ontologies are left untouched.
func seedOntologies(lc fx.Lifecycle, svc *repository.Service, cfg *config.Config, log *slog.Logger) {
	dir := cfg.Repository.OntologySeedDir
	if dir == "" {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			onts, err := ontology.LoadSeedDir(dir)
			if err != nil {
				return err
			}
			if err := svc.SeedOntologies(ctx, onts); err != nil {
				return err
			}
			log.Info("ontology seed processed",
				slog.String("dir", dir),
				slog.Int("count", len(onts)),
			)
			return nil
		},
	})
}
