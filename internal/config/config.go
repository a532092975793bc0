// Package config holds the application configuration: provider credentials,
// store selection and engine tunables. Values load from a YAML file and
// VELOPLAN_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Providers ProvidersConfig `mapstructure:"providers"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

// ProvidersConfig holds external service credentials. Empty keys disable the
// corresponding provider; the engine degrades instead of failing.
type ProvidersConfig struct {
	MapboxAccessToken string `mapstructure:"mapbox_access_token"`
	GraphHopperAPIKey string `mapstructure:"graphhopper_api_key"`
	OpenWeatherAPIKey string `mapstructure:"openweather_api_key"`
	OpenAIAPIKey      string `mapstructure:"openai_api_key"`
	OpenAIModel       string `mapstructure:"openai_model"`
}

// StorageConfig selects where ride history and saved routes live.
type StorageConfig struct {
	// PostgresDSN enables the database-backed stores when set.
	PostgresDSN string `mapstructure:"postgres_dsn"`
	// GPXDirectory reads ride history from local GPX files when set.
	GPXDirectory string `mapstructure:"gpx_directory"`
}

// EngineConfig tunes the generation pipeline.
type EngineConfig struct {
	MinResults   int `mapstructure:"min_results"`
	MaxResults   int `mapstructure:"max_results"`
	HistoryLimit int `mapstructure:"history_limit"`
	// RoutingProfile is the travel profile requested from providers.
	RoutingProfile string `mapstructure:"routing_profile"`
}

// DefaultConfig returns a configuration with sensible defaults and no
// credentials.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			OpenAIModel: "gpt-4o-mini",
		},
		Engine: EngineConfig{
			MinResults:     3,
			MaxResults:     5,
			HistoryLimit:   50,
			RoutingProfile: "cycling",
		},
	}
}

// Load reads configuration from the given file path (optional) and the
// environment, layered over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VELOPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	// Every key needs a default registered; viper only surfaces environment
	// values for keys it already knows about.
	v.SetDefault("providers.mapbox_access_token", cfg.Providers.MapboxAccessToken)
	v.SetDefault("providers.graphhopper_api_key", cfg.Providers.GraphHopperAPIKey)
	v.SetDefault("providers.openweather_api_key", cfg.Providers.OpenWeatherAPIKey)
	v.SetDefault("providers.openai_api_key", cfg.Providers.OpenAIAPIKey)
	v.SetDefault("providers.openai_model", cfg.Providers.OpenAIModel)
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)
	v.SetDefault("storage.gpx_directory", cfg.Storage.GPXDirectory)
	v.SetDefault("engine.min_results", cfg.Engine.MinResults)
	v.SetDefault("engine.max_results", cfg.Engine.MaxResults)
	v.SetDefault("engine.history_limit", cfg.Engine.HistoryLimit)
	v.SetDefault("engine.routing_profile", cfg.Engine.RoutingProfile)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
