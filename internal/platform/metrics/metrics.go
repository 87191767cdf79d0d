package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TrialsCreated   prometheus.Counter
	TrialsFinalized prometheus.Counter

	PositionsProcessed *prometheus.CounterVec

	RestrictionsCacheHits   prometheus.Counter
	RestrictionsCacheMisses prometheus.Counter
	RestrictionsFetchErrors prometheus.Counter

	AlertsEnqueued  prometheus.Counter
	AlertsPublished prometheus.Counter
	AlertsDropped   prometheus.Counter

	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on the given registerer. Passing a
// fresh registry keeps tests independent; main passes the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TrialsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "testdrive_trials_created_total",
			Help: "Total number of trials created.",
		}),
		TrialsFinalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "testdrive_trials_finalized_total",
			Help: "Total number of trials finalized.",
		}),
		PositionsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "testdrive_positions_processed_total",
			Help: "Positions processed, labeled by geofence classification.",
		}, []string{"classification"}),
		RestrictionsCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "testdrive_restrictions_cache_hits_total",
			Help: "Restriction snapshot reads served from cache.",
		}),
		RestrictionsCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "testdrive_restrictions_cache_misses_total",
			Help: "Restriction snapshot reads that went to the external service.",
		}),
		RestrictionsFetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "testdrive_restrictions_fetch_errors_total",
			Help: "Failed fetches from the restrictions service.",
		}),
		AlertsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "testdrive_alerts_enqueued_total",
			Help: "Geofence alerts handed to the dispatcher.",
		}),
		AlertsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "testdrive_alerts_published_total",
			Help: "Geofence alerts delivered to the notification topic.",
		}),
		AlertsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "testdrive_alerts_dropped_total",
			Help: "Geofence alerts dropped because the queue was full or publish failed.",
		}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "testdrive_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
