package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Loading    LoadingConfig    `mapstructure:"loading"`
	Collection CollectionConfig `mapstructure:"collection"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
}

// APIConfig points at the contacts service.
type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Transport is "http" or "ws".
	Transport string `mapstructure:"transport"`
}

type LoadingConfig struct {
	MinDuration time.Duration `mapstructure:"min_duration"`
}

type CollectionConfig struct {
	// Locale is a BCP 47 tag used to order names.
	Locale             string `mapstructure:"locale"`
	SerializeMutations bool   `mapstructure:"serialize_mutations"`
}

// StorageConfig selects where session credentials are kept.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Path    string `mapstructure:"path"`
	Console bool   `mapstructure:"console"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		API: APIConfig{
			URL:       constants.DefaultBaseURL,
			Timeout:   constants.DefaultHTTPTimeout,
			Transport: "http",
		},
		Loading:    LoadingConfig{MinDuration: constants.DefaultMinDuration},
		Collection: CollectionConfig{Locale: "und"},
		Storage:    StorageConfig{Backend: "file"},
		Log:        LogConfig{Level: "warn"},
	}
}

// Path is $AGENDA_CONFIG, or config.toml under the user config dir.
func Path() string {
	if p := os.Getenv("AGENDA_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "agenda", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix AGENDA_,
// e.g. AGENDA_API_URL. A missing config file is not an error.
func Load() (Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("api.url", d.API.URL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.transport", d.API.Transport)
	v.SetDefault("loading.min_duration", d.Loading.MinDuration)
	v.SetDefault("collection.locale", d.Collection.Locale)
	v.SetDefault("collection.serialize_mutations", d.Collection.SerializeMutations)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.redis_url", d.Storage.RedisURL)
	v.SetDefault("storage.redis_prefix", d.Storage.RedisPrefix)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.console", d.Log.Console)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("AGENDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
