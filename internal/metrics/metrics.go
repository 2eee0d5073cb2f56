package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snapkeep"

var (
	// Registry is a dedicated Prometheus registry for all snapkeep metrics.
	Registry = prometheus.NewRegistry()

	// CaptureTotal counts per-file capture operations by outcome.
	CaptureTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_total",
			Help:      "Total number of per-file capture operations",
		},
		[]string{"outcome"}, // ok | error
	)

	// RestoreTotal counts restore operations by outcome.
	RestoreTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_total",
			Help:      "Total number of restore operations",
		},
		[]string{"outcome"}, // ok | error
	)

	// ReclaimedBlobs accumulates orphaned blobs removed after deletions.
	ReclaimedBlobs = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclaimed_blobs_total",
			Help:      "Cumulative count of orphaned blobs removed from storage",
		},
	)

	// SnapshotRecords gauges the number of records currently in the index.
	SnapshotRecords = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Number of snapshot records currently in the index",
		},
	)

	// HTTPRequests counts web API requests by route and status class.
	HTTPRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests served by the web API",
		},
		[]string{"route", "status"},
	)
)

func init() {
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	Registry.MustRegister(prometheus.NewGoCollector())
}

// Handler returns the HTTP handler exposing the snapkeep registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// SetSnapshotRecords reports the current index record count.
func SetSnapshotRecords(count int64) {
	if count < 0 {
		count = 0
	}
	SnapshotRecords.Set(float64(count))
}
