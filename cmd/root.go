package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fetchdeck/fetchd/config"
	"github.com/fetchdeck/fetchd/internal/shell"
	"github.com/fetchdeck/fetchd/util/conf"
	"github.com/fetchdeck/fetchd/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	appName  = "fetchd"
	appUsage = `The shell daemon of the fetchdeck download manager: spawns
the download engine, brokers its stdio RPC channel, and serves
a local bridge for the UI.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Args:            true,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				EnvVars: []string{"LOG_FORMAT"},
			},
			// engine flags
			&cli.StringFlag{
				Name:     "engine-command",
				Usage:    "the command to invoke in order to start the download engine.",
				Aliases:  []string{"c"},
				Category: "engine",
				EnvVars:  []string{"FETCHD_ENGINE__START__COMMAND"},
			},
			&cli.StringSliceFlag{
				Name:     "engine-arg",
				Usage:    "additional arguments to pass to the engine process.",
				Aliases:  []string{"a"},
				Category: "engine",
				EnvVars:  []string{"FETCHD_ENGINE__START__ARGS"},
			},
			&cli.StringFlag{
				Name:     "engine-cwd",
				Usage:    "the working directory to run the engine in.",
				Category: "engine",
				EnvVars:  []string{"FETCHD_ENGINE__START__CWD"},
			},
			&cli.IntFlag{
				Name:     "max-restarts",
				Usage:    "the number of automatic engine restarts after a crash.",
				Value:    3,
				Category: "engine",
				EnvVars:  []string{"FETCHD_ENGINE__MAX_RESTARTS"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := createLogger(ctx)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			// parse config using defaults, .env, env and cli flags
			cfg, err := conf.Parse[config.Config](conf.ParseOptions{
				Cli:        ctx,
				CliMap:     rootFlagMap,
				Defaults:   config.DefaultConfig,
				EnvPrefix:  "FETCHD_",
				DotEnvFile: ".env",
				Log:        log,
			})
			if err != nil {
				return err
			}

			// inject the config into the cli context
			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			log, err := logging.LoggerFromContext(ctx.Context)
			if err != nil {
				return err
			}

			log.Sync()

			return nil
		},
	}

	// rootFlagMap maps cli flag names onto nested config keys.
	rootFlagMap = map[string]string{
		"engine-command": "engine.start.command",
		"engine-arg":     "engine.start.args",
		"engine-cwd":     "engine.start.cwd",
		"max-restarts":   "engine.max_restarts",
	}
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
}

func Execute(params ExecuteParams) {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	run(context.Background(), os.Args)
}

func run(ctx context.Context, args []string) {
	err := rootApp.RunContext(ctx, args)

	code := exitCode(err)

	// a clean shutdown is not an error, even though the shell
	// reports it as ExitError with code 0
	if code == 0 {
		return
	}

	fmt.Printf("exit error: %s\n", err.Error())

	os.Exit(code)
}

// exitCode maps the app error onto the process exit status: nil and
// a zero ExitError are success, a non-zero ExitError carries its
// code, anything else is a generic failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}

	return 1
}

func createLogger(ctx *cli.Context) (*zap.Logger, error) {
	level := getLogLevelFromCLI(ctx)
	format := getLogFormatFromCLI(ctx)

	var config zap.Config
	if format == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.InitialFields = map[string]any{
		"app": "fetchd",
	}

	config.Level = level

	return config.Build()
}

func getLogFormatFromCLI(ctx *cli.Context) string {
	format := ctx.String("log-format")
	if format != "" {
		return format
	}

	return "production"
}

func getLogLevelFromCLI(ctx *cli.Context) zap.AtomicLevel {
	lvl := ctx.String("log-level")

	if atom, err := zap.ParseAtomicLevel(lvl); err == nil {
		return atom
	}

	return zap.NewAtomicLevelAt(zap.InfoLevel)
}
