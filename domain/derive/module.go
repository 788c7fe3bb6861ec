package derive

import "go.uber.org/fx"

var Module = fx.Module("derive",
	fx.Provide(
		NewRegistry,
		NewFramework,
	),
)
