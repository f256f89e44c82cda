package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "aiswo_"

	ResultSuccess = "success"
	ResultError   = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	registerOnce sync.Once

	chatMessages      *prometheus.CounterVec
	chatIntents       *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	alertsSent        *prometheus.CounterVec
	snapshotCache     *prometheus.CounterVec
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		chatMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "chatbot_messages_total",
				Help: "Chat messages answered, by reply source",
			},
			[]string{"source"},
		)
		chatIntents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "chatbot_intents_total",
				Help: "Messages answered from the snapshot, by intent",
			},
			[]string{"intent"},
		)
		generationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "chatbot_generation_latency_seconds",
				Help:    "Fallback text generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		alertsSent = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_sent_total",
				Help: "Bin fill alerts delivered, by channel and result",
			},
			[]string{"channel", "result"},
		)
		snapshotCache = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_cache_total",
				Help: "Snapshot cache lookups by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			chatMessages,
			chatIntents,
			generationLatency,
			alertsSent,
			snapshotCache,
		)
	})
}

// ObserveChatMessage counts one answered chat message.
func ObserveChatMessage(source string) {
	if chatMessages == nil {
		return
	}
	chatMessages.WithLabelValues(source).Inc()
}

// ObserveIntent counts one snapshot-answered message.
func ObserveIntent(intent string) {
	if chatIntents == nil {
		return
	}
	chatIntents.WithLabelValues(intent).Inc()
}

// ObserveGeneration records one generator call.
func ObserveGeneration(result string, d time.Duration) {
	if generationLatency == nil {
		return
	}
	generationLatency.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveAlert counts one alert delivery attempt.
func ObserveAlert(channel, result string) {
	if alertsSent == nil {
		return
	}
	alertsSent.WithLabelValues(channel, result).Inc()
}

// ObserveSnapshotCache counts one cache lookup.
func ObserveSnapshotCache(result string) {
	if snapshotCache == nil {
		return
	}
	snapshotCache.WithLabelValues(result).Inc()
}
