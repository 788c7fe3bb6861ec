package memory

import (
	"go.uber.org/fx"

	"github.com/artifexhq/artifex/domain/repository"
)

var Module = fx.Module("storage-memory",
	fx.Provide(
		fx.Annotate(NewStore, fx.As(new(repository.Store))),
	),
)
