package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Output     string  `mapstructure:"output" yaml:"output"`
	Delay      float64 `mapstructure:"delay" yaml:"delay"`
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"`
	Workers    int     `mapstructure:"workers" yaml:"workers"`
	StrictRate bool    `mapstructure:"strict_rate" yaml:"strict_rate"`

	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds" yaml:"http_timeout_seconds"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

// flagBindings maps config keys to their command-line flag names. Flags only
// take effect when set, so file and env values survive untouched defaults.
var flagBindings = map[string]string{
	"output":      "output",
	"delay":       "delay",
	"max_retries": "max-retries",
	"workers":     "workers",
	"strict_rate": "strict-rate",
}

// Load builds the effective configuration: defaults, then an optional YAML
// file, then MEMFETCH_* environment variables, then changed flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set Defaults
	v.SetDefault("output", "downloads")
	v.SetDefault("delay", 1.0)
	v.SetDefault("max_retries", 3)
	v.SetDefault("workers", 1)
	v.SetDefault("strict_rate", false)
	v.SetDefault("http_timeout_seconds", 60)
	v.SetDefault("log.path", "memfetch.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("MEMFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %g", c.Delay)
	}
	if c.Output == "" {
		c.Output = "downloads"
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = 60
	}
	return nil
}
