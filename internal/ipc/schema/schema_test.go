package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSchema(t *testing.T) *Schema {
	t.Helper()

	s, err := New()
	require.NoError(t, err)
	return s
}

func TestValidate_UnregisteredMethodPasses(t *testing.T) {
	s := newTestSchema(t)

	assert.NoError(t, s.Validate("get_global_stats", nil))
	assert.NoError(t, s.Validate("pause_download", map[string]any{"gid": "d1"}))
}

func TestValidate_AddDownload(t *testing.T) {
	s := newTestSchema(t)

	assert.NoError(t, s.Validate("add_download", map[string]any{
		"url": "https://example.com/f.iso",
	}))

	assert.NoError(t, s.Validate("add_download", map[string]any{
		"url":      "https://example.com/f.iso",
		"path":     "/home/u/Downloads",
		"filename": "f.iso",
		"headers":  map[string]any{"Authorization": "Bearer x"},
		"paused":   true,
	}))

	err := s.Validate("add_download", nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "url")

	assert.Error(t, s.Validate("add_download", map[string]any{"url": ""}))
	assert.Error(t, s.Validate("add_download", map[string]any{"url": 42}))
	assert.Error(t, s.Validate("add_download", map[string]any{
		"url":   "https://example.com/f.iso",
		"extra": true,
	}))
}

func TestValidate_SetSpeedLimit(t *testing.T) {
	s := newTestSchema(t)

	assert.NoError(t, s.Validate("set_speed_limit", map[string]any{
		"direction": "download",
		"limit":     1048576,
	}))
	assert.NoError(t, s.Validate("set_speed_limit", map[string]any{
		"direction": "upload",
		"limit":     0,
	}))

	assert.Error(t, s.Validate("set_speed_limit", map[string]any{
		"direction": "sideways",
		"limit":     1,
	}))
	assert.Error(t, s.Validate("set_speed_limit", map[string]any{
		"direction": "download",
		"limit":     -1,
	}))
	assert.Error(t, s.Validate("set_speed_limit", map[string]any{
		"direction": "download",
	}))
}

func TestValidate_UpdateSettings(t *testing.T) {
	s := newTestSchema(t)

	assert.NoError(t, s.Validate("update_settings", nil))
	assert.NoError(t, s.Validate("update_settings", map[string]any{
		"download_dir":   "/home/u/Downloads",
		"max_concurrent": 4,
	}))

	assert.Error(t, s.Validate("update_settings", map[string]any{
		"max_concurrent": 0,
	}))
	assert.Error(t, s.Validate("update_settings", map[string]any{
		"unknown_key": true,
	}))
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	s := newTestSchema(t)

	err := s.Validate("set_speed_limit", map[string]any{
		"direction": "sideways",
		"limit":     -1,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "direction")
	assert.ErrorContains(t, err, "limit")
}
