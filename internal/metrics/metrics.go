package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterview_fetch_total",
		Help: "Total number of snapshot fetches by result",
	}, []string{"result"})
	FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "clusterview_fetch_duration_seconds",
		Help:    "Wall-clock duration of snapshot fetches",
		Buckets: prometheus.DefBuckets,
	})
	// QueryFailures counts resource queries that degraded to an empty
	// collection.
	QueryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterview_query_failures_total",
		Help: "Total number of failed resource queries by kind",
	}, []string{"kind"})
	CacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterview_cache_requests_total",
		Help: "Snapshot cache lookups by result (hit, miss, forced)",
	}, []string{"result"})
	SnapshotRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "clusterview_snapshot_records",
		Help: "Number of records per kind in the most recent snapshot",
	}, []string{"kind"})
	ArchiveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clusterview_archive_errors_total",
		Help: "Total number of snapshots that could not be archived",
	})
)

func init() {
	prometheus.MustRegister(
		FetchTotal,
		FetchDuration,
		QueryFailures,
		CacheRequests,
		SnapshotRecords,
		ArchiveErrors,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
