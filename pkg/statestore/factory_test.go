package statestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalcampus/ijazah-ledger/pkg/config"
)

func TestNewFromConfigMemory(t *testing.T) {
	cfg := &config.Config{
		StateStore: config.StateStoreConfig{Backend: config.StateBackendMemory},
	}

	backend, closeFn, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, backend)
	assert.NoError(t, closeFn())
}

func TestNewFromConfigGormSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		StateStore: config.StateStoreConfig{Backend: config.StateBackendGorm},
		DB:         config.DBConfig{UseSQLite: true, SQLitePath: "file::memory:"},
	}

	backend, closeFn, err := NewFromConfig(ctx, cfg, nil)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &Gorm{}, backend)

	// AutoMigrate ran, so the backend is immediately usable.
	require.NoError(t, backend.Put(ctx, "k1", []byte("v1")))
	value, found, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v1"), value)
}

func TestNewFromConfigNormalizesBackendName(t *testing.T) {
	cfg := &config.Config{
		StateStore: config.StateStoreConfig{Backend: "  Memory "},
	}

	backend, closeFn, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, backend)
	assert.NoError(t, closeFn())
}

func TestNewFromConfigRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{
		StateStore: config.StateStoreConfig{Backend: "etcd"},
	}

	_, _, err := NewFromConfig(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestNewFromConfigRedisRequiresAddress(t *testing.T) {
	cfg := &config.Config{
		StateStore: config.StateStoreConfig{Backend: config.StateBackendRedis},
	}

	_, _, err := NewFromConfig(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis url or address is required")
}
