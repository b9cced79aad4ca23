package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DRIVER", "SESSION_BACKEND", "LOCK_BACKEND", "RMQ_URL", "GATE_WORKERS", "LOCK_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.ServerPort)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, BackendDB, cfg.SessionBackend)
	assert.Equal(t, BackendLocal, cfg.LockBackend)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Empty(t, cfg.RMQURL)
	assert.False(t, cfg.UsesRedis())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("LOCK_TTL", "2s")
	t.Setenv("GATE_WORKERS", "8")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 2*time.Second, cfg.LockTTL)
	assert.Equal(t, 8, cfg.GateWorkers)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.UsesRedis())
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	tests := map[string]string{
		"STORE_DRIVER":    "mysql",
		"SESSION_BACKEND": "etcd",
		"LOCK_BACKEND":    "zookeeper",
		"GATE_WORKERS":    "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
