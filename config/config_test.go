package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTreasury = "11111111111111111111111111111112"

func validConfig() Config {
	cfg := Default()
	cfg.Auth.UserSecret = "user"
	cfg.Auth.WorkerSecret = "worker"
	cfg.Payment.Treasury = testTreasury
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg, err := load("")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Auth.UserTTL)
	assert.Equal(t, time.Hour, cfg.Auth.WorkerTTL)
	assert.Equal(t, uint64(100_000_000), cfg.Payment.PriceLamports)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "tasks.created", cfg.Events.Subject)
	assert.False(t, cfg.Auth.RequireNonce)
}

func TestFileThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 4000
auth:
  user_secret: from-file
  worker_ttl: 30m
payment:
  treasury: ` + testTreasury + `
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("TURKS_AUTH__USER_SECRET", "from-env")
	t.Setenv("TURKS_AUTH__REQUIRE_NONCE", "true")

	cfg, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.UserSecret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.WorkerTTL)
	assert.True(t, cfg.Auth.RequireNonce)
	assert.Equal(t, testTreasury, cfg.Payment.Treasury)
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("JWT_SECRET", "legacy-user")
	t.Setenv("WORKER_JWT_SECRET", "legacy-worker")
	t.Setenv("PARENT_WALLET_ADDRESS", testTreasury)
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGIN", "https://turks.example")

	cfg, err := load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy-user", cfg.Auth.UserSecret)
	assert.Equal(t, "legacy-worker", cfg.Auth.WorkerSecret)
	assert.Equal(t, testTreasury, cfg.Payment.Treasury)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://turks.example", cfg.Server.CORSOrigin)
	require.NoError(t, cfg.Validate())

	// prefixed names win over legacy ones
	t.Setenv("TURKS_SERVER__PORT", "9090")
	cfg, err = load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"missing user secret":   func(c *Config) { c.Auth.UserSecret = "" },
		"missing worker secret": func(c *Config) { c.Auth.WorkerSecret = "" },
		"shared secret":         func(c *Config) { c.Auth.WorkerSecret = c.Auth.UserSecret },
		"bad treasury":          func(c *Config) { c.Payment.Treasury = "abc" },
		"zero price":            func(c *Config) { c.Payment.PriceLamports = 0 },
		"unknown driver":        func(c *Config) { c.Storage.Driver = "mongo" },
		"postgres without dsn":  func(c *Config) { c.Storage.Driver = "postgres" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
