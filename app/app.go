package app

import (
	"github.com/fetchdeck/fetchd/config"
	"github.com/fetchdeck/fetchd/internal/engine"
	"github.com/fetchdeck/fetchd/internal/ipc"
	"github.com/fetchdeck/fetchd/internal/shell"
	"github.com/fetchdeck/fetchd/internal/tray"
	"github.com/fetchdeck/fetchd/util/conf"
	"github.com/fetchdeck/fetchd/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide the engine broker
		engine.Module(config.Engine),
		// provide the gatekept UI call surface
		ipc.Module(),
		// provide the tray stats glue
		tray.Module(),
	)

	return shell.New(log, sharedModule), nil
}
