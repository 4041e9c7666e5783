package tray

import (
	"github.com/fetchdeck/fetchd/internal/engine"
	"github.com/fetchdeck/fetchd/util/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module("tray",
		logging.DecorateLogger("tray"),
		fx.Provide(func(s *engine.Supervisor, log *zap.Logger) *Monitor {
			return NewMonitor(s, log)
		}),
		// feed the monitor from the engine's event fan-out
		fx.Invoke(func(s *engine.Supervisor, m *Monitor) {
			s.SubscribeEvents(m.HandleEvent)
		}),
	)
}
