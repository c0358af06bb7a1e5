package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	TransportHertz = "hertz"
	TransportEcho  = "echo"
)

type Config struct {
	Port       int           `mapstructure:"port"`
	Transport  string        `mapstructure:"transport"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
	LogLevel   string        `mapstructure:"log_level"`
	HistoryCap int           `mapstructure:"history_cap"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SetDefaults registers every key with its default and binds the
// upper-case environment variable of the same name (PORT, TRANSPORT, ...).
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("transport", TransportHertz)
	v.SetDefault("static_path", "./public")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("log_level", "info")
	v.SetDefault("history_cap", 50)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads an optional YAML file on top of defaults and environment. With
// an empty path it looks for config/config.<CONFIG_ENV>.yaml, and reads no
// file at all when CONFIG_ENV is unset. A missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path == "" {
		if env := os.Getenv("CONFIG_ENV"); env != "" {
			path = fmt.Sprintf("config/config.%s.yaml", env)
		}
	}
	if path != "" {
		if err := readFile(v, path); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		log.Info().Str("module", "config").Str("file", path).Msg("config file not found, using defaults")
		return nil
	}
	log.Info().Str("module", "config").Str("file", path).Msg("loaded config")
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Transport {
	case TransportHertz, TransportEcho:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.HistoryCap <= 0 {
		return fmt.Errorf("history_cap must be positive, got %d", c.HistoryCap)
	}
	return nil
}
