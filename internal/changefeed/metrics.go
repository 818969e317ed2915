package changefeed

import "github.com/prometheus/client_golang/prometheus"

var (
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratings",
			Subsystem: "changefeed",
			Name:      "notifications_total",
			Help:      "Store change notifications received, by operation.",
		},
		[]string{"op"},
	)

	listenRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ratings",
			Subsystem: "changefeed",
			Name:      "listen_restarts_total",
			Help:      "Times the LISTEN connection was lost and re-established.",
		},
	)

	reloadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ratings",
			Subsystem: "changefeed",
			Name:      "reload_failures_total",
			Help:      "Aggregate recomputations skipped because the store read failed.",
		},
	)
)

func init() {
	_ = prometheus.Register(notifications)
	_ = prometheus.Register(listenRestarts)
	_ = prometheus.Register(reloadFailures)
}
