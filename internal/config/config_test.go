package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Engine.MinResults)
	assert.Equal(t, 5, cfg.Engine.MaxResults)
	assert.Equal(t, 50, cfg.Engine.HistoryLimit)
	assert.Equal(t, "cycling", cfg.Engine.RoutingProfile)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAIModel)
	assert.Empty(t, cfg.Providers.MapboxAccessToken)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
providers:
  mapbox_access_token: pk.test
  openweather_api_key: ow-test
storage:
  gpx_directory: /var/rides
engine:
  max_results: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pk.test", cfg.Providers.MapboxAccessToken)
	assert.Equal(t, "ow-test", cfg.Providers.OpenWeatherAPIKey)
	assert.Equal(t, "/var/rides", cfg.Storage.GPXDirectory)
	assert.Equal(t, 4, cfg.Engine.MaxResults)
	// Untouched values keep their defaults.
	assert.Equal(t, 3, cfg.Engine.MinResults)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("VELOPLAN_PROVIDERS_MAPBOX_ACCESS_TOKEN", "pk.from-env")
	t.Setenv("VELOPLAN_STORAGE_GPX_DIRECTORY", "/data/rides")
	t.Setenv("VELOPLAN_ENGINE_MAX_RESULTS", "4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pk.from-env", cfg.Providers.MapboxAccessToken)
	assert.Equal(t, "/data/rides", cfg.Storage.GPXDirectory)
	assert.Equal(t, 4, cfg.Engine.MaxResults)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
providers:
  graphhopper_api_key: gh-from-file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("VELOPLAN_PROVIDERS_GRAPHHOPPER_API_KEY", "gh-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gh-from-env", cfg.Providers.GraphHopperAPIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
