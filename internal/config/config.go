// Package config provides configuration management for keyforge using
// Viper, merging command-line flags, KEYFORGE_-prefixed environment
// variables, and an optional .keyforge.yml file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration for one invocation.
type Config struct {
	// ConfigPath is the positional argument: the layout config to resolve.
	// Never read from a config file.
	ConfigPath string `yaml:"-"`

	Output string      `yaml:"output"`
	Debug  bool        `yaml:"debug"`
	Clean  bool        `yaml:"clean"`
	Watch  bool        `yaml:"watch"`
	Log    LogConfig   `yaml:"log"`
	Serve  ServeConfig `yaml:"serve"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServeConfig controls the watch-mode preview server.
type ServeConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load builds a Config from viper's merged sources and applies defaults.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Workarounds for viper's handling of values set programmatically
	// rather than through the config file.
	if viper.IsSet("output") {
		config.Output = viper.GetString("output")
	}
	if viper.IsSet("debug") {
		config.Debug = viper.GetBool("debug")
	}
	if viper.IsSet("clean") {
		config.Clean = viper.GetBool("clean")
	}
	if viper.IsSet("watch") {
		config.Watch = viper.GetBool("watch")
	}
	if viper.IsSet("serve.enabled") {
		config.Serve.Enabled = viper.GetBool("serve.enabled")
	}
	if viper.IsSet("serve.port") {
		config.Serve.Port = viper.GetInt("serve.port")
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Output == "" {
		config.Output = "./output"
	}
	if config.Serve.Port == 0 {
		config.Serve.Port = 7400
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve port %d out of range", c.Serve.Port)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if c.Serve.Enabled && !c.Watch {
		return fmt.Errorf("serve requires watch mode")
	}

	return nil
}
