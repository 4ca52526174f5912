package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LifecycleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Name:      "lifecycle_events_total",
		Help:      "Total number of lifecycle events recorded",
	}, []string{"action"})

	Enrollments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "occupancy",
		Name:      "enrollments_total",
		Help:      "Total number of new guest enrollments",
	})

	GuestsPresent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "occupancy",
		Name:      "guests_present",
		Help:      "Number of guests currently checked in",
	})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "occupancy",
		Name:      "match_duration_seconds",
		Help:      "Duration of probe-to-registry matching",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "occupancy",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "occupancy",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
