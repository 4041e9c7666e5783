package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fetchdeck/fetchd/config"
	"github.com/fetchdeck/fetchd/internal/engine"
	"github.com/fetchdeck/fetchd/internal/ipc"
	"github.com/fetchdeck/fetchd/util/conf"
	"github.com/fetchdeck/fetchd/util/logging"
	"github.com/urfave/cli/v2"
)

var (
	callCmdDescription = `The call command spawns the engine, issues one gatekept RPC,
	prints the JSON result to stdout and shuts the engine down.
	Intended for debugging the engine protocol.

	Example:

	    fetchd call get_global_stats
	    fetchd call add_download '{"url":"https://example.com/f.iso"}'`
	callCmd = &cli.Command{
		Name:        "call",
		Usage:       "Issue a single engine RPC and exit.",
		ArgsUsage:   "<method> [params-json]",
		Description: callCmdDescription,
		Action:      callAction,
	}
)

func callAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	method := ctx.Args().First()
	if method == "" {
		return fmt.Errorf("no method given")
	}

	var params map[string]any
	if raw := ctx.Args().Get(1); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return fmt.Errorf("malformed params: %w", err)
		}
	}

	sup := engine.NewSupervisor(cfg.Engine, log)

	if err := sup.Start(ctx.Context); err != nil {
		return err
	}
	defer sup.Shutdown(ctx.Context)

	surface, err := ipc.New(sup, log.Named("ipc"))
	if err != nil {
		return err
	}

	result, err := surface.Invoke(ctx.Context, method, params)
	if err != nil {
		return err
	}

	fmt.Println(string(result))

	return nil
}

func init() {
	rootApp.Commands = append(rootApp.Commands, callCmd)
}
