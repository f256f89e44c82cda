package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ chatbot.SnapshotProvider = (*SnapshotCache)(nil)

type countingSource struct {
	*MemoryStore
	calls atomic.Int32
	err   error
}

func (c *countingSource) ListBins(ctx context.Context) ([]models.Bin, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.MemoryStore.ListBins(ctx)
}

func TestSnapshotCacheReusesWithinTTL(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.CreateBin(ctx, &models.Bin{ID: "bin1", FillPct: models.Float(50)}))
	src := &countingSource{MemoryStore: mem}

	cache := NewSnapshotCache(src, time.Minute)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	snap, err := cache.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Bins, 1)

	_, err = cache.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	clock = clock.Add(2 * time.Minute)
	_, err = cache.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())

	cache.Invalidate()
	_, err = cache.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(3), stats.Misses)
	assert.Equal(t, int64(1), stats.Invalidations)
	assert.InDelta(t, 25.0, stats.HitRate, 0.001)
	assert.Equal(t, 60.0, stats.TTLSeconds)
}

func TestSnapshotCacheZeroTTLAlwaysLoads(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{MemoryStore: NewMemoryStore()}
	cache := NewSnapshotCache(src, 0)

	for i := 0; i < 3; i++ {
		_, err := cache.Snapshot(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestSnapshotCacheDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{MemoryStore: NewMemoryStore(), err: errors.New("rtdb down")}
	cache := NewSnapshotCache(src, time.Minute)

	_, err := cache.Snapshot(ctx)
	require.Error(t, err)

	src.err = nil
	_, err = cache.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}
