package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Log      LogConfig
	Finance  FinanceConfig
	Exchange ExchangeConfig
	Redis    RedisConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// FinanceConfig holds the external finance service connection settings
type FinanceConfig struct {
	BaseURL string
	Tenant  string
	Token   string
	Timeout time.Duration
}

// ExchangeConfig holds exchange-rate cache settings
type ExchangeConfig struct {
	CacheTTL   time.Duration
	CacheStore string // memory or redis
}

// RedisConfig holds Redis connection settings (only used when the
// exchange cache store is redis)
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ACQ_ prefix (e.g., ACQ_FINANCE_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ACQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Finance: FinanceConfig{
			BaseURL: v.GetString("finance.base_url"),
			Tenant:  v.GetString("finance.tenant"),
			Token:   v.GetString("finance.token"),
			Timeout: v.GetDuration("finance.timeout"),
		},
		Exchange: ExchangeConfig{
			CacheTTL:   v.GetDuration("exchange.cache_ttl"),
			CacheStore: v.GetString("exchange.cache_store"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers default values for every key
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "acquisitions-finance")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("finance.base_url", "http://localhost:9130")
	v.SetDefault("finance.tenant", "default")
	v.SetDefault("finance.token", "")
	v.SetDefault("finance.timeout", 30*time.Second)

	v.SetDefault("exchange.cache_ttl", 60*time.Second)
	v.SetDefault("exchange.cache_store", "memory")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Finance.BaseURL == "" {
		return fmt.Errorf("finance.base_url is required")
	}
	switch c.Exchange.CacheStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("exchange.cache_store must be memory or redis, got %q", c.Exchange.CacheStore)
	}
	if c.Exchange.CacheTTL <= 0 {
		return fmt.Errorf("exchange.cache_ttl must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
