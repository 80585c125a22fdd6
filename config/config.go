// Package config loads daemon configuration, merging an optional YAML file
// with SWARMBUS_-prefixed environment variables over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the swarmbus daemon.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Model   ModelConfig   `mapstructure:"model"`
	Bus     BusConfig     `mapstructure:"bus"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig selects level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// ModelConfig selects the provider used for model-backed agents created
// through the API. Provider "none" disables them.
type ModelConfig struct {
	Provider    string  `mapstructure:"provider"` // none, openai, anthropic
	Name        string  `mapstructure:"name"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// BusConfig tunes the message bus.
type BusConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

// Load reads config.yaml from the working directory or ./configs when
// present and applies environment overrides (e.g. SWARMBUS_SERVER_ADDR).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("SWARMBUS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file is fine; defaults + env carry the daemon.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("model.provider", "none")
	v.SetDefault("model.name", "")
	v.SetDefault("model.max_tokens", 4096)
	v.SetDefault("model.temperature", 0.7)

	v.SetDefault("bus.history_limit", 1000)
}

func (c *Config) validate() error {
	switch c.Model.Provider {
	case "none", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}
