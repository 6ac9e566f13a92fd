package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 3000, cfg.App.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.App.ShutdownTimeout)
	assert.Equal(t, "https://testnet-api.algonode.cloud", cfg.Algod.Address)
	assert.Equal(t, uint64(749515555), cfg.Contract.AppID)
	assert.Equal(t, "testnet", cfg.Contract.Network)
	assert.Equal(t, "https://testnet.algoexplorer.io/tx/", cfg.Contract.ExplorerTxURL)
	assert.Equal(t, "prompt", cfg.Wallet.Approval)
	assert.Equal(t, 24*time.Hour, cfg.Wallet.SessionTTL)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Idempotency.Window)
	assert.Empty(t, cfg.API.HMACSecret)
	assert.Equal(t, 5*time.Minute, cfg.API.MaxSkew)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STREAMFI_CONTRACT_APP_ID", "42")
	t.Setenv("STREAMFI_APP_HTTP_PORT", "8081")
	t.Setenv("STREAMFI_CHAIN_FAKE", "true")
	t.Setenv("STREAMFI_ALGOD_ADDRESS", "")
	t.Setenv("STREAMFI_STORE_BACKEND", "memory")
	t.Setenv("STREAMFI_WALLET_SESSION_TTL", "90m")
	t.Setenv("STREAMFI_API_HMAC_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Contract.AppID)
	assert.Equal(t, 8081, cfg.App.HTTPPort)
	assert.True(t, cfg.Chain.Fake)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 90*time.Minute, cfg.Wallet.SessionTTL)
	assert.Equal(t, "s3cret", cfg.API.HMACSecret)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: production
  log_level: warn
contract:
  app_id: 7
  confirm_rounds: 4
store:
  backend: redis
  redis_addr: cache:6379
  redis_db: 2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, uint64(7), cfg.Contract.AppID)
	assert.Equal(t, uint64(4), cfg.Contract.ConfirmRounds)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 2, cfg.Store.RedisDB)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"bad env", func(c *AppConfig) { c.App.Env = "staging" }},
		{"bad level", func(c *AppConfig) { c.App.LogLevel = "trace" }},
		{"zero app id", func(c *AppConfig) { c.Contract.AppID = 0 }},
		{"bad approval", func(c *AppConfig) { c.Wallet.Approval = "maybe" }},
		{"unknown backend", func(c *AppConfig) { c.Store.Backend = "etcd" }},
		{"postgres without dsn", func(c *AppConfig) { c.Store.Backend = "postgres" }},
		{"no node", func(c *AppConfig) { c.Algod.Address = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := *base
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := *base
	cfg.Algod.Address = ""
	cfg.Chain.Fake = true
	require.NoError(t, cfg.Validate())
}
