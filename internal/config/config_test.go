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
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("DELIVERY_POLICY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, DeliveryConnectivity, cfg.Delivery.Policy)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.NotEmpty(t, cfg.Starters.Fallback.Common)
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", StoragePostgres)
	t.Setenv("DATABASE_DSN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("DELIVERY_POLICY", "eventually")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFallbackFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starters.json")
	body := `{"common":[{"text":"Salaam!","category":"greeting"}],"regular":[],"scholar":[]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("STARTERS_FALLBACK_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Starters.Fallback.Common, 1)
	assert.Equal(t, "Salaam!", cfg.Starters.Fallback.Common[0].Text)
}
