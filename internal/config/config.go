// Package config loads the justcall CLI settings from ~/.justcall/config.yml
// and JUSTCALL_* environment variables, and writes them back for `justcall configure`.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/Sternrassler/justcall-client/pkg/logging"
	"github.com/Sternrassler/justcall-client/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. JUSTCALL_API_KEY.
	EnvPrefix = "JUSTCALL"

	// DirName is the config directory below the user's home.
	DirName = ".justcall"

	// FileName is the config file inside DirName.
	FileName = "config.yml"

	dirPerm  = 0o700
	filePerm = 0o600
)

// Output formats understood by the CLI.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Rate strategies selectable with rate_strategy.
const (
	StrategyWindow      = "window"
	StrategyTokenBucket = "token_bucket"
	StrategyRedis       = "redis"
)

var (
	// ErrMissingCredentials is returned by ClientConfig when no key or secret is configured.
	ErrMissingCredentials = errors.New("api key and secret are not configured (run `justcall configure` or set JUSTCALL_API_KEY and JUSTCALL_API_SECRET)")

	// ErrInvalidOutput is returned for an unknown output format.
	ErrInvalidOutput = errors.New("output must be table, json or yaml")
)

// Config is the persisted CLI configuration.
type Config struct {
	APIKey       string        `mapstructure:"api_key" json:"api_key,omitempty" yaml:"api_key"`
	APISecret    string        `mapstructure:"api_secret" json:"api_secret,omitempty" yaml:"api_secret"`
	BaseURL      string        `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`
	RateLimit    int           `mapstructure:"rate_limit" json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	RateInterval time.Duration `mapstructure:"rate_interval" json:"rate_interval,omitempty" yaml:"rate_interval,omitempty"`
	MaxRetries   int           `mapstructure:"max_retries" json:"max_retries,omitempty" yaml:"max_retries"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Output       string        `mapstructure:"output" json:"output,omitempty" yaml:"output,omitempty"`
	LogLevel     string        `mapstructure:"log_level" json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// RateStrategy picks the rate gate: window, token_bucket or redis. When
	// empty, redis is used if RedisURL is set and window otherwise. RateBurst
	// sizes the token bucket.
	RateStrategy string `mapstructure:"rate_strategy" json:"rate_strategy,omitempty" yaml:"rate_strategy,omitempty"`
	RateBurst    int    `mapstructure:"rate_burst" json:"rate_burst,omitempty" yaml:"rate_burst,omitempty"`

	// RedisURL switches the rate gate to a ratelimit.RedisWindow so several
	// processes sharing one API key share one budget. RedisKey names the window.
	RedisURL string `mapstructure:"redis_url" json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	RedisKey string `mapstructure:"redis_key" json:"redis_key,omitempty" yaml:"redis_key,omitempty"`
}

// SetDefaults registers every key with viper. Keys without a default are not
// visible to Unmarshal through AutomaticEnv, so all of them are listed.
func SetDefaults(v *viper.Viper) {
	def := client.DefaultConfig("", "")
	v.SetDefault("api_key", "")
	v.SetDefault("api_secret", "")
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("rate_limit", def.RateLimit)
	v.SetDefault("rate_interval", def.RateInterval)
	v.SetDefault("max_retries", def.MaxRetries)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("output", OutputTable)
	v.SetDefault("log_level", string(logging.LevelWarn))
	v.SetDefault("rate_strategy", "")
	v.SetDefault("rate_burst", 0)
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_key", "")
}

// DefaultPath returns ~/.justcall/config.yml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, DirName, FileName), nil
}

// Init points v at the config file (path, or the default location when empty),
// enables JUSTCALL_* overrides and reads the file. A missing file is not an error.
func Init(v *viper.Viper, path string) error {
	SetDefaults(v)

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	v.SetConfigFile(path)
	v.SetConfigType("yml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that the client would otherwise reject late.
func (c *Config) Validate() error {
	switch c.Output {
	case "", OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidOutput, c.Output)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.RateLimit < 0 || c.RateInterval < 0 {
		return fmt.Errorf("%w: rate_limit and rate_interval must not be negative", client.ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be >= 0 (got %d)", client.ErrInvalidConfig, c.MaxRetries)
	}
	switch c.RateStrategy {
	case "", StrategyWindow, StrategyTokenBucket:
	case StrategyRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: rate_strategy redis requires redis_url", client.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: rate_strategy must be window, token_bucket or redis (got %q)", client.ErrInvalidConfig, c.RateStrategy)
	}
	if c.RateBurst < 0 {
		return fmt.Errorf("%w: rate_burst must not be negative (got %d)", client.ErrInvalidConfig, c.RateBurst)
	}
	return nil
}

// Strategy returns the effective rate strategy.
func (c *Config) Strategy() string {
	switch {
	case c.RateStrategy != "":
		return c.RateStrategy
	case c.RedisURL != "":
		return StrategyRedis
	default:
		return StrategyWindow
	}
}

// ClientConfig converts the settings into a client configuration. The gate is
// left nil; see Gate.
func (c *Config) ClientConfig() (client.Config, error) {
	if c.APIKey == "" || c.APISecret == "" {
		return client.Config{}, ErrMissingCredentials
	}
	cfg := client.DefaultConfig(c.APIKey, c.APISecret)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.RateLimit > 0 {
		cfg.RateLimit = c.RateLimit
	}
	if c.RateInterval > 0 {
		cfg.RateInterval = c.RateInterval
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	cfg.MaxRetries = c.MaxRetries
	return cfg, nil
}

// Gate builds the gate named by Strategy: nil for the client's in-memory
// window, a token bucket, or a Redis-backed sliding window. The returned close
// func releases the Redis connection and is never nil.
func (c *Config) Gate(ctx context.Context) (ratelimit.Admitter, func() error, error) {
	noop := func() error { return nil }
	limit, interval := c.budget()

	switch c.Strategy() {
	case StrategyWindow:
		return nil, noop, nil
	case StrategyTokenBucket:
		burst := c.RateBurst
		if burst == 0 {
			burst = min(ratelimit.DefaultBurst, limit)
		}
		bucket, err := ratelimit.NewTokenBucket(float64(limit)/interval.Seconds(), burst)
		if err != nil {
			return nil, noop, err
		}
		return bucket, noop, nil
	}

	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, noop, fmt.Errorf("invalid redis_url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, noop, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	window, err := ratelimit.NewRedisWindow(rdb, c.windowKey(), limit, interval)
	if err != nil {
		_ = rdb.Close()
		return nil, noop, err
	}
	return window, rdb.Close, nil
}

// budget returns the configured limit and interval, zero meaning the default.
func (c *Config) budget() (int, time.Duration) {
	limit, interval := c.RateLimit, c.RateInterval
	if limit == 0 {
		limit = ratelimit.DefaultLimit
	}
	if interval == 0 {
		interval = ratelimit.DefaultInterval
	}
	return limit, interval
}

// windowKey names the shared window. Without an explicit redis_key every
// process using the same API key derives the same name.
func (c *Config) windowKey() string {
	if c.RedisKey != "" {
		return c.RedisKey
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.BaseURL+"#"+c.APIKey)).String()
}

// Masked returns a copy safe for printing.
func (c Config) Masked() Config {
	if c.APISecret != "" {
		c.APISecret = "***"
	}
	switch {
	case len(c.APIKey) > 4:
		c.APIKey = c.APIKey[:4] + "***"
	case c.APIKey != "":
		c.APIKey = "***"
	}
	return c
}

// Save writes cfg as YAML to path, creating the directory when needed.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
