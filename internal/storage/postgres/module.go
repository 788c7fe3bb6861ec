package postgres

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/artifexhq/artifex/domain/repository"
	"github.com/artifexhq/artifex/internal/migrate"
)

var Module = fx.Module("storage-postgres",
	fx.Provide(
		fx.Annotate(NewStore, fx.As(new(repository.Store))),
	),
	fx.Invoke(runMigrations),
)

func runMigrations(lc fx.Lifecycle, db *bun.DB, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return migrate.Up(ctx, db.DB, log)
		},
	})
}
