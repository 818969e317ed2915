package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	poolAcquiredDesc = prometheus.NewDesc("ratings_db_pool_acquired_conns",
		"Connections currently checked out of the pool.", nil, nil)
	poolIdleDesc = prometheus.NewDesc("ratings_db_pool_idle_conns",
		"Idle connections in the pool.", nil, nil)
	poolTotalDesc = prometheus.NewDesc("ratings_db_pool_total_conns",
		"Open connections owned by the pool.", nil, nil)
	poolMaxDesc = prometheus.NewDesc("ratings_db_pool_max_conns",
		"Configured pool size.", nil, nil)
	poolAcquiresDesc = prometheus.NewDesc("ratings_db_pool_acquires_total",
		"Successful connection acquires.", nil, nil)
	poolEmptyAcquiresDesc = prometheus.NewDesc("ratings_db_pool_empty_acquires_total",
		"Acquires that had to wait for a connection.", nil, nil)
)

// poolCollector reads pgxpool statistics at scrape time.
type poolCollector struct {
	pool *pgxpool.Pool
}

// Collector returns a prometheus collector for the pool's statistics.
func (s *Store) Collector() prometheus.Collector {
	return poolCollector{pool: s.pool}
}

func (c poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolAcquiredDesc
	ch <- poolIdleDesc
	ch <- poolTotalDesc
	ch <- poolMaxDesc
	ch <- poolAcquiresDesc
	ch <- poolEmptyAcquiresDesc
}

func (c poolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	st := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(poolAcquiredDesc, prometheus.GaugeValue, float64(st.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(st.IdleConns()))
	ch <- prometheus.MustNewConstMetric(poolTotalDesc, prometheus.GaugeValue, float64(st.TotalConns()))
	ch <- prometheus.MustNewConstMetric(poolMaxDesc, prometheus.GaugeValue, float64(st.MaxConns()))
	ch <- prometheus.MustNewConstMetric(poolAcquiresDesc, prometheus.CounterValue, float64(st.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(poolEmptyAcquiresDesc, prometheus.CounterValue, float64(st.EmptyAcquireCount()))
}
