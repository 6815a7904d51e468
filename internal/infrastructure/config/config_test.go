package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "acquisitions-finance", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "http://localhost:9130", cfg.Finance.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Finance.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Exchange.CacheTTL)
	assert.Equal(t, "memory", cfg.Exchange.CacheStore)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ACQ_APP_ENV", "production")
	t.Setenv("ACQ_FINANCE_BASE_URL", "https://finance.example.org")
	t.Setenv("ACQ_FINANCE_TOKEN", "secret")
	t.Setenv("ACQ_EXCHANGE_CACHE_STORE", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://finance.example.org", cfg.Finance.BaseURL)
	assert.Equal(t, "secret", cfg.Finance.Token)
	assert.Equal(t, "redis", cfg.Exchange.CacheStore)
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("ACQ_EXCHANGE_CACHE_STORE", "memcached")

	_, err := Load()
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Finance:  FinanceConfig{BaseURL: "http://localhost:9130"},
			Exchange: ExchangeConfig{CacheTTL: time.Minute, CacheStore: "memory"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing base url", func(t *testing.T) {
		cfg := valid()
		cfg.Finance.BaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown cache store", func(t *testing.T) {
		cfg := valid()
		cfg.Exchange.CacheStore = "memcached"
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive cache ttl", func(t *testing.T) {
		cfg := valid()
		cfg.Exchange.CacheTTL = 0
		assert.Error(t, cfg.Validate())
	})
}
