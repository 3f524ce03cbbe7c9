// Package config loads stampdag settings from a YAML file, STAMPDAG_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const envPrefix = "STAMPDAG"

// Chain holds the JSON-RPC endpoint of one blockchain node. Headers names a
// JSON headers file that answers lookups offline when no endpoint is set.
type Chain struct {
	RPCURL      string `mapstructure:"rpc_url"`
	RPCUser     string `mapstructure:"rpc_user"`
	RPCPassword string `mapstructure:"rpc_password"`
	Headers     string `mapstructure:"headers"`
}

// Enabled reports whether any header source is configured.
func (c Chain) Enabled() bool {
	return c.RPCURL != "" || c.Headers != ""
}

type Oracle struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   uint64        `mapstructure:"retries"`
	CacheSize int           `mapstructure:"cache_size"`
}

type Verify struct {
	Concurrency int `mapstructure:"concurrency"`
}

type Config struct {
	DataDir     string `mapstructure:"data_dir"`
	LogLevel    string `mapstructure:"log_level"`
	Bitcoin     Chain  `mapstructure:"bitcoin"`
	Litecoin    Chain  `mapstructure:"litecoin"`
	Oracle      Oracle `mapstructure:"oracle"`
	Verify      Verify `mapstructure:"verify"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DefaultPath returns $HOME/.config/stampdag/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "stampdag", "config.yaml")
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("data_dir", home)
	v.SetDefault("log_level", "info")
	v.SetDefault("oracle.timeout", 10*time.Second)
	v.SetDefault("oracle.retries", 3)
	v.SetDefault("oracle.cache_size", 1024)
	v.SetDefault("verify.concurrency", 8)
	v.SetDefault("metrics_addr", "")
	for _, chain := range []string{"bitcoin", "litecoin"} {
		v.SetDefault(chain+".rpc_url", "")
		v.SetDefault(chain+".rpc_user", "")
		v.SetDefault(chain+".rpc_password", "")
		v.SetDefault(chain+".headers", "")
	}
}

// Load reads the config file at path into v and decodes the result. A
// missing file is only an error when path was given explicitly.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout must be positive, got %s", c.Oracle.Timeout)
	}
	if c.Oracle.CacheSize <= 0 {
		return fmt.Errorf("oracle.cache_size must be positive, got %d", c.Oracle.CacheSize)
	}
	if c.Verify.Concurrency <= 0 {
		return fmt.Errorf("verify.concurrency must be positive, got %d", c.Verify.Concurrency)
	}
	return nil
}

// Level returns the configured log level. Validate has already accepted it.
func (c *Config) Level() zerolog.Level {
	lvl, _ := zerolog.ParseLevel(c.LogLevel)
	return lvl
}
