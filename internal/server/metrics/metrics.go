// Package metrics owns the process-wide prometheus collectors.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "heartwall"

// Upload outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeRejected   = "rejected"
	OutcomeBlobError  = "blob_error"
	OutcomeStoreError = "store_error"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memories",
			Name:      "uploads_total",
			Help:      "Memory submissions by outcome.",
		},
		[]string{"outcome"},
	)
	blobWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blob",
			Name:      "writes_total",
			Help:      "Blob writes by backend and success.",
		},
		[]string{"backend", "success"},
	)
	blobBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blob",
			Name:      "written_bytes_total",
			Help:      "Bytes written to blob storage.",
		},
		[]string{"backend"},
	)
	fanoutPublishes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "publishes_total",
			Help:      "Events handed to the broadcast hub.",
		},
	)
	fanoutDeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "deliveries_total",
			Help:      "Events queued to individual subscribers.",
		},
	)
	fanoutDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "dropped_subscribers_total",
			Help:      "Subscribers disconnected because their buffer was full.",
		},
	)
	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "subscribers",
			Help:      "Currently connected subscribers.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, uploads, blobWrites, blobBytes,
			fanoutPublishes, fanoutDeliveries, fanoutDrops, subscribers)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordUpload(outcome string) {
	RegisterMetrics()
	uploads.WithLabelValues(outcome).Inc()
}

func RecordBlobWrite(backend string, size int, success bool) {
	RegisterMetrics()
	blobWrites.WithLabelValues(backend, strconv.FormatBool(success)).Inc()
	if success {
		blobBytes.WithLabelValues(backend).Add(float64(size))
	}
}

func RecordPublish(delivered, dropped int) {
	RegisterMetrics()
	fanoutPublishes.Inc()
	fanoutDeliveries.Add(float64(delivered))
	fanoutDrops.Add(float64(dropped))
}

func SetSubscribers(n int) {
	RegisterMetrics()
	subscribers.Set(float64(n))
}
