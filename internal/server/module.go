package server

import (
	"github.com/fetchdeck/fetchd/internal/ipc"
	"github.com/fetchdeck/fetchd/util/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module(config HttpConfig) fx.Option {
	return fx.Module("server",
		logging.DecorateLogger("bridge"),
		// provide config
		fx.Supply(config),
		// provide bridge routes
		fx.Provide(func(i *ipc.IPC, log *zap.Logger) HttpHandlerResult {
			return AsHttpHandler("/rpc", NewRpcHandler(i, log))
		}),
		fx.Provide(func(i *ipc.IPC, log *zap.Logger) HttpHandlerResult {
			return AsHttpHandler("/events", NewEventsHandler(i, log))
		}),
		fx.Provide(func(i *ipc.IPC) HttpHandlerResult {
			return AsHttpHandler("/status", NewStatusHandler(i))
		}),
		// provide server
		fx.Provide(NewLifecycleServer),
		// invoke server
		fx.Invoke(func(*HttpServer) {}),
	)
}
