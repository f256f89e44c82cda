package helpers

import (
	"context"
	"testing"

	"aiswo-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger("chatty")
	assert.Error(t, err)
}

func TestOpenStoreMemorySeeded(t *testing.T) {
	cfg := config.Default()
	cfg.StoreBackend = config.BackendMemory
	cfg.SeedDemo = true

	b, err := OpenStore(context.Background(), &cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Store.Close()
	assert.Nil(t, b.FirebaseApp)

	bins, err := b.Store.ListBins(context.Background())
	require.NoError(t, err)
	assert.Len(t, bins, 6)
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.StoreBackend = config.BackendSQLite
	cfg.DatabaseURL = ":memory:"

	b, err := OpenStore(context.Background(), &cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Store.Close()

	bins, err := b.Store.ListBins(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bins)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.StoreBackend = "mongo"

	_, err := OpenStore(context.Background(), &cfg, zap.NewNop())
	assert.Error(t, err)
}
