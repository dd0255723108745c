package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce          sync.Once
	registry              = prometheus.NewRegistry()
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	uploadsAcceptedTotal  prometheus.Counter
	uploadsRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram
	gradesRecordedTotal   prometheus.Counter
	listFallbackTotal     *prometheus.CounterVec
	watchSubscriptions    *prometheus.GaugeVec
	realtimeEventsDropped *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API on the
// service registry exposed at /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acadex_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acadex_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acadex_http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		uploadsAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acadex_uploads_accepted_total",
			Help: "Number of submission files stored in the blob store.",
		})

		uploadsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acadex_uploads_rejected_total",
			Help: "Number of submission files rejected by the upload gateway.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "acadex_upload_latency_seconds",
			Help:    "Time spent storing a submission file.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		})

		gradesRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acadex_grades_recorded_total",
			Help: "Number of grades recorded.",
		})

		listFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acadex_list_fallback_total",
			Help: "Ordered list queries that fell back to an unordered query sorted in memory.",
		}, []string{"resource"})

		watchSubscriptions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "acadex_watch_subscriptions",
			Help: "Currently open watch subscriptions.",
		}, []string{"resource"})

		realtimeEventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acadex_realtime_events_dropped_total",
			Help: "Change events not delivered to a subscriber because a refresh was already pending.",
		}, []string{"resource"})

		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			uploadsAcceptedTotal,
			uploadsRejectedTotal,
			uploadLatencySeconds,
			gradesRecordedTotal,
			listFallbackTotal,
			watchSubscriptions,
			realtimeEventsDropped,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// UploadsAccepted counts files stored by the upload gateway.
func UploadsAccepted() prometheus.Counter {
	RegisterMetrics()
	return uploadsAcceptedTotal
}

// UploadsRejected counts rejected files by reason.
func UploadsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsRejectedTotal
}

// UploadLatency exposes the blob store latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// GradesRecorded counts committed grades.
func GradesRecorded() prometheus.Counter {
	RegisterMetrics()
	return gradesRecordedTotal
}

// ListFallbacks counts ordered queries that were served by the in-memory sort.
func ListFallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return listFallbackTotal
}

// WatchSubscriptions tracks open watch subscriptions per resource.
func WatchSubscriptions() *prometheus.GaugeVec {
	RegisterMetrics()
	return watchSubscriptions
}

// RealtimeEventsDropped counts change events coalesced into an already pending refresh.
func RealtimeEventsDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsDropped
}
