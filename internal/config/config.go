package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSessionTimeout      = 24 * time.Hour
	DefaultLeaderboardCacheTTL = 30 * time.Second
	DefaultTimezone            = "UTC"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// browser origins allowed to call the api
	AllowedOrigins []string `toml:"allowed_origins"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// workouts
	DefaultTimezone      string        `toml:"default_timezone"`
	SessionTimeout       time.Duration `toml:"session_timeout"`
	LeaderboardCacheTTL  time.Duration `toml:"leaderboard_cache_ttl"`
	StartRateLimitPerMin int           `toml:"start_rate_limit_per_min"`
	// telegram
	TelegramEnabled bool `toml:"telegram_enabled"`
	TelegramDebug   bool `toml:"telegram_debug"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing", env)
	}
	return cfg, nil
}

// Load reads the TOML config file and returns the section for the given env,
// with defaults applied to unset workout settings.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}
	return fromToml(&t, env)
}

// Parse is Load for an in-memory TOML document.
func Parse(env, data string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = DefaultTimezone
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.LeaderboardCacheTTL <= 0 {
		c.LeaderboardCacheTTL = DefaultLeaderboardCacheTTL
	}
	if c.StartRateLimitPerMin <= 0 {
		c.StartRateLimitPerMin = 10
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 {
		return errors.New("port not set")
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid default timezone [%s]: %w", c.DefaultTimezone, err)
	}
	return nil
}
