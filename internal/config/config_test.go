package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAPIKeys(t *testing.T) {
	keys := parseAPIKeys(" k1:cust_1, k2:cust_2 ,broken")

	assert.Equal(t, map[string]string{"k1": "cust_1", "k2": "cust_2"}, keys)
	assert.Empty(t, parseAPIKeys(""))
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "http://localhost:8080", cfg.App.BaseURL)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, 10, cfg.Clicks.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Clicks.FlushDelay)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, cfg.RateLimit.BurstSize)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadFile_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nAPP_BASE_URL=https://sho.rt/\nSTORE_BACKEND=postgres\n" +
		"CLICK_BATCH_SIZE=25\nCLICK_FLUSH_DELAY=2s\nREDIS_HOST=cache\nAPI_KEYS=secret:cust_1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "https://sho.rt", cfg.App.BaseURL)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 25, cfg.Clicks.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Clicks.FlushDelay)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cust_1", cfg.Auth.APIKeys["secret"])
}

func TestLoadFile_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
