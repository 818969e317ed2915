package stream

import "github.com/prometheus/client_golang/prometheus"

var (
	subscribersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ratings",
			Subsystem: "stream",
			Name:      "subscribers_active",
			Help:      "Viewers currently attached to the push feed.",
		},
	)

	published = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ratings",
			Subsystem: "stream",
			Name:      "aggregates_published_total",
			Help:      "Aggregates broadcast to the hub.",
		},
	)

	dropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ratings",
			Subsystem: "stream",
			Name:      "aggregates_dropped_total",
			Help:      "Undelivered aggregates replaced by a newer one.",
		},
	)

	connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratings",
			Subsystem: "stream",
			Name:      "connections_total",
			Help:      "Push connections by how they ended.",
		},
		[]string{"reason"},
	)
)

func init() {
	_ = prometheus.Register(subscribersActive)
	_ = prometheus.Register(published)
	_ = prometheus.Register(dropped)
	_ = prometheus.Register(connections)
}
