package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RPC metrics
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusfs_rpc_requests_total",
			Help: "Total number of RPC requests by method and status",
		},
		[]string{"method", "status"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nimbusfs_rpc_request_duration_seconds",
			Help:    "RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Journal flush metrics
	JournalFlushAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbusfs_journal_flush_attempts_total",
			Help: "Total number of ApplyJournal flush attempts",
		},
	)

	JournalFlushConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbusfs_journal_flush_conflicts_total",
			Help: "Total number of conflicting files reported across all journal flushes",
		},
	)

	JournalFlushRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbusfs_journal_flush_retries_total",
			Help: "Total number of journal flush retries due to missing blobs or conflicts",
		},
	)

	JournalFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nimbusfs_journal_flush_duration_seconds",
			Help:    "Time taken for a successful journal flush, including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Storage metrics
	BlobStoreSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nimbusfs_blob_store_size_bytes",
			Help: "Total content bytes held by the blob store",
		},
	)

	BlobStoreBlobsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nimbusfs_blob_store_blobs_total",
			Help: "Total number of distinct blobs held by the blob store",
		},
	)

	EntitiesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nimbusfs_entities_total",
			Help: "Total number of directory entities by file type",
		},
		[]string{"file_type"},
	)

	// Write-buffer metrics
	WriteBufferFlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusfs_write_buffer_flushes_total",
			Help: "Total number of write-buffer flushes by trigger",
		},
		[]string{"trigger"},
	)

	WriteBufferBytesBuffered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nimbusfs_write_buffer_bytes_buffered",
			Help: "Total bytes currently buffered across all open files",
		},
	)

	// Offline/online transition metrics
	OfflineTransitionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbusfs_offline_transitions_total",
			Help: "Total number of times the client transitioned into offline mode",
		},
	)
)

func init() {
	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(RPCRequestDuration)
	prometheus.MustRegister(JournalFlushAttemptsTotal)
	prometheus.MustRegister(JournalFlushConflictsTotal)
	prometheus.MustRegister(JournalFlushRetriesTotal)
	prometheus.MustRegister(JournalFlushDuration)
	prometheus.MustRegister(BlobStoreSizeBytes)
	prometheus.MustRegister(BlobStoreBlobsTotal)
	prometheus.MustRegister(EntitiesTotal)
	prometheus.MustRegister(WriteBufferFlushesTotal)
	prometheus.MustRegister(WriteBufferBytesBuffered)
	prometheus.MustRegister(OfflineTransitionsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
