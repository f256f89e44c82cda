package store

import (
	"context"
	"sync"
	"time"

	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/metrics"
)

// SnapshotCache serves chatbot snapshots from a store, reusing one snapshot
// for up to ttl so bursts of chat messages do not re-read every bin.
// A ttl of zero disables caching.
type SnapshotCache struct {
	src   chatbot.Source
	ttl   time.Duration
	now   func() time.Time
	mutex sync.Mutex

	snapshot *chatbot.Snapshot
	loadedAt time.Time
	stats    CacheStats
}

// CacheStats is a point-in-time view of cache effectiveness.
type CacheStats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Invalidations int64   `json:"invalidations"`
	HitRate       float64 `json:"hitRate"` // percent of lookups served from cache
	TTLSeconds    float64 `json:"ttlSeconds"`
}

// NewSnapshotCache creates a snapshot cache over src.
func NewSnapshotCache(src chatbot.Source, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{src: src, ttl: ttl, now: time.Now}
}

// Snapshot implements chatbot.SnapshotProvider.
func (c *SnapshotCache) Snapshot(ctx context.Context) (chatbot.Snapshot, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.snapshot != nil && c.ttl > 0 && c.now().Sub(c.loadedAt) < c.ttl {
		c.stats.Hits++
		metrics.ObserveSnapshotCache(metrics.CacheHit)
		return *c.snapshot, nil
	}

	c.stats.Misses++
	metrics.ObserveSnapshotCache(metrics.CacheMiss)
	snap, err := chatbot.LoadSnapshot(ctx, c.src)
	if err != nil {
		return chatbot.Snapshot{}, err
	}
	c.snapshot = &snap
	c.loadedAt = c.now()
	return snap, nil
}

// Invalidate drops the cached snapshot; the next call reloads from the store.
func (c *SnapshotCache) Invalidate() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.snapshot != nil {
		c.snapshot = nil
		c.stats.Invalidations++
	}
}

// Stats reports hits, misses and invalidations since the cache was created.
func (c *SnapshotCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	out := c.stats
	if total := out.Hits + out.Misses; total > 0 {
		out.HitRate = float64(out.Hits) / float64(total) * 100
	}
	out.TTLSeconds = c.ttl.Seconds()
	return out
}
