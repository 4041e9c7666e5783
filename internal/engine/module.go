package engine

import (
	"context"

	"github.com/fetchdeck/fetchd/util/logging"
	"go.uber.org/fx"
)

func Module(config Config) fx.Option {
	return fx.Module("engine",
		logging.DecorateLogger("engine"),
		// provide config
		fx.Supply(config),
		// provide supervisor
		fx.Provide(NewSupervisor),
		// tie the engine process to the app lifecycle
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, s *Supervisor) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})
}
