package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DevSecret signs session cookies outside release mode when no secret is set.
const DevSecret = "darkroom-dev-secret"

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`

	GracePeriod   time.Duration `mapstructure:"grace_period"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	HistoryLimit  int           `mapstructure:"history_limit"`
	RateLimit     int           `mapstructure:"rate_limit"`
	RateInterval  time.Duration `mapstructure:"rate_interval"`

	// RedisURL selects the Redis store; empty keeps everything in memory.
	RedisURL string `mapstructure:"redis_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("grace_period", "2m")
	v.SetDefault("sweep_interval", "30s")
	v.SetDefault("stale_after", "90s")
	v.SetDefault("history_limit", 200)
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_interval", "5s")
	v.SetDefault("redis_url", "")
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults. DARKROOM_*
// environment variables win over both.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("DARKROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Err(err).Msg("config file not loaded, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" && cfg.Mode != "release" {
		cfg.Secret = DevSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Bool("redis", cfg.RedisURL != "").Msg("config ready")
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: port %d out of range", c.Port)
	case c.PingPeriod <= 0 || c.PongWait <= c.PingPeriod:
		return fmt.Errorf("config: ping_period %s must be positive and below pong_wait %s", c.PingPeriod, c.PongWait)
	case c.SendBuffer <= 0:
		return fmt.Errorf("config: send_buffer must be positive")
	case c.GracePeriod <= 0:
		return fmt.Errorf("config: grace_period must be positive")
	case c.SweepInterval <= 0 || c.StaleAfter <= 0:
		return fmt.Errorf("config: sweep_interval and stale_after must be positive")
	case c.StaleAfter <= c.PingPeriod:
		// Pongs only arrive once per ping period.
		return fmt.Errorf("config: stale_after %s must exceed ping_period %s", c.StaleAfter, c.PingPeriod)
	case c.Mode == "release" && (c.Secret == "" || c.Secret == DevSecret):
		return fmt.Errorf("config: release mode needs a session secret other than the dev default")
	case c.RateLimit <= 0 || c.RateInterval <= 0:
		return fmt.Errorf("config: rate_limit and rate_interval must be positive")
	}
	return nil
}
