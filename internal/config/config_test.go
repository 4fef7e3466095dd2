package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SESSION_STORE", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "moodlens_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("IDP_ASSERTION_SECRET", "testsecret123456789012345678901234")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "moodlens_test", cfg.MongoDB.Database)
	require.Equal(t, "sessions", cfg.MongoDB.Collection)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 30*24*time.Hour, cfg.Session.Expiry)
	require.Equal(t, 90*24*time.Hour, cfg.Session.MaxExpiry)
	require.Equal(t, time.Hour, cfg.Session.SweepInterval)
	require.Equal(t, "session_token", cfg.Session.URLParam)
	require.Equal(t, 10*time.Second, cfg.MongoDB.Timeout)
}

func TestLoad_DoesNotValidate(t *testing.T) {
	t.Setenv("SESSION_STORE", "mongo")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("POSTGRES_URL", "postgres://localhost/sessions")

	cfg := Load()
	require.Equal(t, "postgres://localhost/sessions", cfg.Postgres.URL)

	_, err := LoadConfig()
	require.ErrorContains(t, err, "MONGODB_URI")
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("SESSION_EXPIRY", "48h")
	t.Setenv("SESSION_SWEEP_INTERVAL", "5m")
	t.Setenv("SESSION_URL_PARAM", "st")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreRedis, cfg.Session.Store)
	require.Equal(t, 48*time.Hour, cfg.Session.Expiry)
	require.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
	require.Equal(t, "st", cfg.Session.URLParam)
	require.True(t, cfg.RateLimit.Enabled)
	require.InDelta(t, 2.5, cfg.RateLimit.RPS, 1e-9)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Session: SessionConfig{
			Store: StoreMemory, Expiry: time.Hour, MaxExpiry: 2 * time.Hour,
			SweepInterval: time.Minute, URLParam: "session_token",
		}}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"unknown store":        func(c *Config) { c.Session.Store = "cassandra" },
		"mongo without uri":    func(c *Config) { c.Session.Store = StoreMongo },
		"redis without host":   func(c *Config) { c.Session.Store = StoreRedis },
		"postgres without url": func(c *Config) { c.Session.Store = StorePostgres },
		"zero expiry":          func(c *Config) { c.Session.Expiry = 0 },
		"expiry above max":     func(c *Config) { c.Session.Expiry = 3 * time.Hour },
		"zero sweep":           func(c *Config) { c.Session.SweepInterval = 0 },
		"empty url param":      func(c *Config) { c.Session.URLParam = "" },
		"redis limiter":        func(c *Config) { c.RateLimit.UseRedis = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
