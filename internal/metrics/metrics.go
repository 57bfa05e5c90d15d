package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rating write metrics
var (
	// RatingsSubmitted counts submit attempts by result (ok, not_found, error)
	RatingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "care_map_ratings_submitted_total",
			Help: "Rating submissions by result",
		},
		[]string{"result"},
	)
)

// Live update metrics
var (
	// Broadcasts counts fan-out passes triggered by committed writes
	Broadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "care_map_broadcasts_total",
			Help: "Snapshot broadcasts to live subscribers",
		},
	)

	// BroadcastDuration tracks how long a fan-out pass takes, encoding included
	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "care_map_broadcast_duration_seconds",
			Help:    "Broadcast fan-out duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// Deliveries counts per-subscriber enqueue outcomes (ok, evicted)
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "care_map_deliveries_total",
			Help: "Per-subscriber snapshot deliveries by result",
		},
		[]string{"result"},
	)

	// LiveSubscribers tracks currently registered subscribers
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "care_map_live_subscribers",
			Help: "Number of registered live-update subscribers",
		},
	)

	// EncodeFailures counts snapshots that could not be serialized
	EncodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "care_map_snapshot_encode_failures_total",
			Help: "Snapshot messages that failed to encode",
		},
	)
)

var poolConnsDesc = prometheus.NewDesc(
	"care_map_db_pool_connections",
	"Database pool connections by state",
	[]string{"state"}, nil,
)

// PoolCollector exports pgxpool statistics on every scrape.
type PoolCollector struct {
	stats func() *pgxpool.Stat
}

// NewPoolCollector wraps a stats source such as (*store.Store).Stats.
func NewPoolCollector(stats func() *pgxpool.Stat) *PoolCollector {
	return &PoolCollector{stats: stats}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolConnsDesc
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.stats()
	if stat == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(stat.TotalConns()), "total")
	ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(stat.IdleConns()), "idle")
	ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()), "acquired")
}
