package config

import (
	"maps"

	"github.com/fetchdeck/fetchd/internal/engine"
	"github.com/fetchdeck/fetchd/internal/server"
	"github.com/fetchdeck/fetchd/util/conf"
)

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Engine is the engine supervisor configuration
	Engine engine.Config `conf:"engine"`

	// Bridge is the UI bridge server configuration
	Bridge server.HttpConfig `conf:"bridge"`
}

var engineDefaults = conf.DefaultConfig{
	"call_timeout":    "30s",
	"grace_timeout":   "500ms",
	"kill_timeout":    "5s",
	"max_restarts":    3,
	"restart_backoff": "1s",
	"healthy_reset":   "5m",
}

var bridgeDefaults = conf.DefaultConfig{
	"host": "127.0.0.1",
	"port": 7311,
}

var DefaultConfig = func() conf.DefaultConfig {
	defaults := conf.DefaultConfig{
		"log_level":  "info",
		"log_format": "production",
	}

	maps.Copy(defaults, conf.MergeDefaults("engine", engineDefaults))
	maps.Copy(defaults, conf.MergeDefaults("bridge", bridgeDefaults))

	return defaults
}()
