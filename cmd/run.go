package cmd

import (
	"github.com/fetchdeck/fetchd/app"
	"github.com/fetchdeck/fetchd/config"
	"github.com/fetchdeck/fetchd/internal/server"
	"github.com/fetchdeck/fetchd/util/conf"
	"github.com/urfave/cli/v2"
)

var (
	runCmdDescription = `The run command spawns the download engine and starts the
	local bridge server the UI process connects to. It blocks
	until the process receives a termination signal, then shuts
	the engine down gracefully.`
	runCmd = &cli.Command{
		Name:        "run",
		Usage:       "Spawn the engine and serve the UI bridge.",
		Description: runCmdDescription,
		Action:      runAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "host",
				Aliases:  []string{"H"},
				Usage:    "The host to bind the bridge to.",
				Value:    "127.0.0.1",
				Category: "bridge",
				EnvVars:  []string{"FETCHD_BRIDGE__HOST"},
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"P"},
				Usage:    "The port to bind the bridge to.",
				Value:    7311,
				Category: "bridge",
				EnvVars:  []string{"FETCHD_BRIDGE__PORT"},
			},
			&cli.BoolFlag{
				Name:     "h2c",
				Usage:    "Enable HTTP/2 cleartext upgrade.",
				Value:    false,
				Category: "bridge",
				EnvVars:  []string{"FETCHD_BRIDGE__H2C"},
			},
		},
	}
)

func runAction(ctx *cli.Context) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	httpConfig := server.HttpConfig{
		Host: cfg.Bridge.Host,
		Port: cfg.Bridge.Port,
		H2c:  cfg.Bridge.H2c,
	}

	if ctx.IsSet("host") {
		httpConfig.Host = ctx.String("host")
	}
	if ctx.IsSet("port") {
		httpConfig.Port = ctx.Int("port")
	}
	if ctx.IsSet("h2c") {
		httpConfig.H2c = ctx.Bool("h2c")
	}

	return a.Run(ctx.Context, server.Module(httpConfig))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, runCmd)
}
