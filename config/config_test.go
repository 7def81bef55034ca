package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Test loading default config
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify defaults
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "file", cfg.Storage.Adapter)
	assert.Equal(t, "./data/leaderboard.txt", cfg.Storage.File.Path)
	assert.Equal(t, int64(10240), cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.MaxPerWindow)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.RateLimit.FailOpen)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCOREKEEPER_SERVER_ADDR", ":9191")
	t.Setenv("SCOREKEEPER_STORAGE_ADAPTER", "memory")
	t.Setenv("SCOREKEEPER_RATE_LIMIT_MAX_PER_WINDOW", "3")
	t.Setenv("SCOREKEEPER_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("SCOREKEEPER_RATE_LIMIT_FAIL_OPEN", "false")
	t.Setenv("SCOREKEEPER_WEBHOOKS", "http://a.example/hook, http://b.example/hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9191", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, 3, cfg.RateLimit.MaxPerWindow)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.False(t, cfg.RateLimit.FailOpen)
	assert.Equal(t, []string{"http://a.example/hook", "http://b.example/hook"}, cfg.Webhooks)
}

func TestLoadFromFile(t *testing.T) {
	// Create a temporary config file
	configContent := `{
		"environment": "testing",
		"server": {
			"address": ":9090"
		},
		"storage": {
			"adapter": "memory"
		}
	}`

	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	// Load config from file
	cfg, err := LoadFromFile(tmpFile.Name())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, EnvTesting, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	// defaults survive where the file is silent
	assert.Equal(t, "/api", cfg.Server.PathPrefix)
}

func TestLoadFromFileRejectsBadPath(t *testing.T) {
	_, err := LoadFromFile("")
	require.Error(t, err)

	_, err = LoadFromFile("config.yaml")
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Adapter = "cassandra"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.MaxPerWindow = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Storage.Adapter = "sql"
	cfg.Storage.SQL.DSN = ""
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.SQL.DSN = "postgres://user:hunter2@db/scores"
	cfg.RateLimit.Redis.Password = "hunter2"

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "[REDACTED]")
}
