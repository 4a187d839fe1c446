package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the prometheus collectors registered by the service.
// A single instance is constructed at startup and threaded through the
// components that need to observe counts; the /metrics handler reads
// the default registry.
type Metrics struct {
	MessagesConsumed  *prometheus.CounterVec
	MessagesPublished *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	StoreErrors       *prometheus.CounterVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	PipelineLatency   *prometheus.HistogramVec
	ActiveSessions    prometheus.Gauge
	SessionSendFail   prometheus.Counter
	WatchAlertsSent   prometheus.Counter
	HotDealsBroadcast prometheus.Counter
	TripPlansCreated  prometheus.Counter
	IntentFallbacks   prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealengine_messages_consumed_total",
			Help: "Messages consumed per bus topic.",
		}, []string{"topic"}),
		MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealengine_messages_published_total",
			Help: "Messages published per bus topic.",
		}, []string{"topic"}),
		MessagesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealengine_messages_dropped_total",
			Help: "Messages dropped per topic and reason.",
		}, []string{"topic", "reason"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealengine_store_errors_total",
			Help: "Store operation errors by kind.",
		}, []string{"op", "kind"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealengine_cache_hits_total",
			Help: "Cache hits.",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealengine_cache_misses_total",
			Help: "Cache misses.",
		}),
		PipelineLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealengine_pipeline_stage_seconds",
			Help:    "Time spent per pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dealengine_active_sessions",
			Help: "Currently connected SessionHub sessions.",
		}),
		SessionSendFail: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealengine_session_send_failures_total",
			Help: "SessionHub send failures.",
		}),
		WatchAlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealengine_watch_alerts_total",
			Help: "Price-watch alerts emitted.",
		}),
		HotDealsBroadcast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealengine_hot_deals_broadcast_total",
			Help: "Hot-deal broadcasts sent.",
		}),
		TripPlansCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealengine_trip_plans_created_total",
			Help: "Trip plans persisted.",
		}),
		IntentFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealengine_intent_fallbacks_total",
			Help: "Times the regex fallback was used instead of the external text model.",
		}),
	}
}
