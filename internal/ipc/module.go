package ipc

import (
	"github.com/fetchdeck/fetchd/internal/engine"
	"github.com/fetchdeck/fetchd/util/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module("ipc",
		logging.DecorateLogger("ipc"),
		fx.Provide(func(s *engine.Supervisor, log *zap.Logger) (*IPC, error) {
			return New(s, log)
		}),
	)
}
