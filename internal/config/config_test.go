package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "FEEDBACK_BACKEND", "DB_PATH", "DB_DRIVER", "REDIS_ADDR",
		"CACHE_TTL", "GRPC_PORT", "HTTP_PORT", "POLL_INTERVAL", "CORS_ORIGINS",
		"SUBMIT_RATE_LIMIT", "SUBMIT_RATE_BURST", "TIMEZONE", "STORE_NAME",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, BackendRelational, cfg.Backend)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 1.0, cfg.SubmitRateLimit)
	assert.Equal(t, 5, cfg.SubmitRateBurst)
	assert.Nil(t, cfg.CORSOrigins)
	assert.Equal(t, "Mercado Silveira", cfg.StoreName)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("FEEDBACK_BACKEND", "Document")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017/?replicaSet=rs0")
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("GRPC_REFLECTION_ENABLED", "true")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("SUBMIT_RATE_LIMIT", "0.5")
	t.Setenv("CORS_ORIGINS", " http://a.local, ,http://b.local ")
	t.Setenv("TIMEZONE", "UTC")

	cfg := LoadFromEnv()
	assert.Equal(t, BackendDocument, cfg.Backend)
	assert.Equal(t, 6000, cfg.GRPCPort)
	assert.True(t, cfg.GRPCReflectionEnabled)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 0.5, cfg.SubmitRateLimit)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORSOrigins)
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadFromEnvInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("GRPC_PORT", "not-a-port")
	t.Setenv("GRPC_REFLECTION_ENABLED", "maybe")
	t.Setenv("CACHE_TTL", "ten minutes")

	cfg := LoadFromEnv()
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.False(t, cfg.GRPCReflectionEnabled)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backend:      BackendRelational,
			DBDriver:     "postgres",
			PollInterval: time.Second,
			Timezone:     "UTC",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backend = "firebase" }, "unknown feedback backend"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "unsupported DB_DRIVER"},
		{"document without uri", func(c *Config) { c.Backend = BackendDocument }, "MONGO_URI"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "POLL_INTERVAL"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.ErrorIs(t, (&Config{Backend: "x"}).Validate(), ErrUnknownBackend)
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := NewLogger(&Config{AppEnv: env})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}
