package config_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tickengine/pkg/tickengine/config"
)

func TestFromFS(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/tick.yaml", []byte("tick_interval: 0.5\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/tick.JSON", []byte(`{"max_errors": 4}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/tick.toml", []byte("x = 1"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/bad.yml", []byte("a: [1, 2"), 0o644))

	t.Run("yaml", func(t *testing.T) {
		cfg, err := config.FromFS(fs, "/etc/tick.yaml")
		require.NoError(t, err)
		assert.Equal(t, 0.5, cfg.Float("tick_interval", 0))
	})

	t.Run("json with uppercase extension", func(t *testing.T) {
		cfg, err := config.FromFS(fs, "/etc/tick.JSON")
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Int("max_errors", 0))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := config.FromFS(fs, "/etc/tick.toml")
		assert.ErrorContains(t, err, "unsupported config file extension")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := config.FromFS(fs, "/etc/bad.yml")
		assert.ErrorContains(t, err, "parse yaml")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.FromFS(fs, "/etc/nope.yaml")
		assert.ErrorContains(t, err, "read config file")
	})
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := config.FromJSON([]byte("{"))
	assert.ErrorContains(t, err, "parse json")
}
