package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

/* Config is read from an optional .env file (toml) and the environment
 * Destinations and verify tokens are open-ended keys, looked up on demand
 */

const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	verifyTokenPrefix = "VERIFY_TOKEN_"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	MetricsPort           string        `mapstructure:"METRICS_PORT"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	SourcesFile           string        `mapstructure:"SOURCES_FILE"`
	StorageDriver         string        `mapstructure:"STORAGE_DRIVER"`
	RedisAddr             string        `mapstructure:"REDIS_ADDR"`
	RedisPassword         string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int           `mapstructure:"REDIS_DB"`
	PostgresDSN           string        `mapstructure:"POSTGRES_DSN"`
	OutboundTimeout       time.Duration `mapstructure:"OUTBOUND_TIMEOUT"`
	OutboundMaxRedirects  int           `mapstructure:"OUTBOUND_MAX_REDIRECTS"`
	DefaultMode           string        `mapstructure:"DEFAULT_MODE"`
	DefaultResponsePolicy string        `mapstructure:"DEFAULT_RESPONSE_POLICY"`

	v *viper.Viper
}

func GetConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	return Load(v)
}

// Load reads configuration through v. A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	config.StorageDriver = strings.ToLower(strings.TrimSpace(config.StorageDriver))
	config.v = v

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SOURCES_FILE", "sources.yaml")
	v.SetDefault("STORAGE_DRIVER", StorageRedis)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("OUTBOUND_TIMEOUT", webhook.DefaultTimeout)
	v.SetDefault("OUTBOUND_MAX_REDIRECTS", webhook.DefaultMaxRedirects)
	v.SetDefault("DEFAULT_MODE", webhook.Synchronous.String())
	v.SetDefault("DEFAULT_RESPONSE_POLICY", webhook.Honest.String())
}

// Validate checks settings that would make the process unusable
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageRedis, StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for storage driver %s", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.StorageDriver)
	}
	if c.OutboundTimeout <= 0 {
		return fmt.Errorf("OUTBOUND_TIMEOUT must be positive")
	}
	if c.OutboundMaxRedirects < 0 {
		return fmt.Errorf("OUTBOUND_MAX_REDIRECTS cannot be negative")
	}
	return nil
}

// Mode is the forwarding mode of sources that do not set one
func (c *Config) Mode() webhook.Mode {
	return webhook.NewMode(c.DefaultMode)
}

// ResponsePolicy is the response policy of sources that do not set one
func (c *Config) ResponsePolicy() webhook.ResponsePolicy {
	return webhook.NewResponsePolicy(c.DefaultResponsePolicy)
}

// Level parses LOG_LEVEL, falling back to info
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// TargetURL returns the destination stored under key, or "" when unset
func (c *Config) TargetURL(key string) string {
	if c.v == nil || key == "" {
		return ""
	}
	return c.v.GetString(key)
}

// VerifyToken returns VERIFY_TOKEN_<SOURCE>, or "" when unset
func (c *Config) VerifyToken(source string) string {
	if c.v == nil || source == "" {
		return ""
	}
	key := verifyTokenPrefix + strings.ToUpper(strings.ReplaceAll(source, "-", "_"))
	return c.v.GetString(key)
}
