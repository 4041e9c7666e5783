package config_test

import (
	"testing"

	"github.com/fetchdeck/fetchd/config"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, "info", config.DefaultConfig["log_level"])
	assert.Equal(t, "production", config.DefaultConfig["log_format"])

	assert.Equal(t, "30s", config.DefaultConfig["engine.call_timeout"])
	assert.Equal(t, "500ms", config.DefaultConfig["engine.grace_timeout"])
	assert.Equal(t, "5s", config.DefaultConfig["engine.kill_timeout"])
	assert.Equal(t, 3, config.DefaultConfig["engine.max_restarts"])
	assert.Equal(t, "1s", config.DefaultConfig["engine.restart_backoff"])
	assert.Equal(t, "5m", config.DefaultConfig["engine.healthy_reset"])

	assert.Equal(t, "127.0.0.1", config.DefaultConfig["bridge.host"])
	assert.Equal(t, 7311, config.DefaultConfig["bridge.port"])
}
