package conf_test

import (
	"testing"

	"github.com/fetchdeck/fetchd/util/conf"
	"github.com/stretchr/testify/assert"
)

func TestMergeDefaults(t *testing.T) {
	merged := conf.MergeDefaults("engine", conf.DefaultConfig{
		"call_timeout": "30s",
		"max_restarts": 3,
	})

	assert.Equal(t, conf.DefaultConfig{
		"engine.call_timeout": "30s",
		"engine.max_restarts": 3,
	}, merged)
}

func TestMergeDefaults_MultipleMaps(t *testing.T) {
	merged := conf.MergeDefaults("bridge",
		conf.DefaultConfig{"host": "127.0.0.1"},
		conf.DefaultConfig{"port": 7311},
	)

	assert.Equal(t, conf.DefaultConfig{
		"bridge.host": "127.0.0.1",
		"bridge.port": 7311,
	}, merged)
}

func TestMergeDefaults_LaterMapsWin(t *testing.T) {
	merged := conf.MergeDefaults("bridge",
		conf.DefaultConfig{"port": 7311},
		conf.DefaultConfig{"port": 7312},
	)

	assert.Equal(t, conf.DefaultConfig{"bridge.port": 7312}, merged)
}
