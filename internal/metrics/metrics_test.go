package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBeforeInitIsNoop(t *testing.T) {
	// Must not panic when collectors are not registered yet.
	if chatMessages == nil {
		ObserveChatMessage("rules")
		ObserveIntent("count")
		ObserveGeneration(ResultSuccess, time.Millisecond)
		ObserveAlert("websocket", ResultSuccess)
		ObserveSnapshotCache(CacheHit)
	}
}

func TestCounters(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(chatMessages.WithLabelValues("rules"))
	ObserveChatMessage("rules")
	ObserveChatMessage("rules")
	assert.Equal(t, before+2, testutil.ToFloat64(chatMessages.WithLabelValues("rules")))

	before = testutil.ToFloat64(alertsSent.WithLabelValues("fcm", ResultError))
	ObserveAlert("fcm", ResultError)
	assert.Equal(t, before+1, testutil.ToFloat64(alertsSent.WithLabelValues("fcm", ResultError)))

	before = testutil.ToFloat64(snapshotCache.WithLabelValues(CacheMiss))
	ObserveSnapshotCache(CacheMiss)
	assert.Equal(t, before+1, testutil.ToFloat64(snapshotCache.WithLabelValues(CacheMiss)))
}
