// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Run metrics
	RunsStarted   prometheus.Counter
	RunsFinished  prometheus.Counter
	RunsStopped   prometheus.Counter
	RunActive     prometheus.Gauge
	RunDuration   prometheus.Histogram
	JobsByOutcome *prometheus.CounterVec

	// Resolution metrics
	FetchesTotal  *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	FetchInFlight prometheus.Gauge

	// Download metrics
	DownloadBytes    prometheus.Counter
	DownloadDuration prometheus.Histogram

	// Thumbnail metrics
	ThumbnailsTotal *prometheus.CounterVec

	// Event metrics
	EventsEmitted   *prometheus.CounterVec
	EventSubscriber prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all application metrics.
func New() *Metrics {
	metrics := &Metrics{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "runs",
			Name:      "started_total",
			Help:      "Total number of download runs started",
		}),
		RunsFinished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "runs",
			Name:      "finished_total",
			Help:      "Total number of download runs that reached the all-finished event",
		}),
		RunsStopped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "runs",
			Name:      "stopped_total",
			Help:      "Total number of download runs stopped by the user",
		}),
		RunActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "konbata",
			Subsystem: "runs",
			Name:      "active",
			Help:      "Whether a download run is currently active (0 or 1)",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "konbata",
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Histogram of run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		JobsByOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "jobs",
			Name:      "outcome_total",
			Help:      "Total number of jobs by terminal state",
		}, []string{"outcome"}),

		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Total number of metadata fetches by class and status",
		}, []string{"class", "status"}),
		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "konbata",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Histogram of metadata fetch duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		FetchInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "konbata",
			Subsystem: "fetch",
			Name:      "in_flight",
			Help:      "Number of metadata fetches currently in flight",
		}),

		DownloadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Total bytes downloaded across all jobs",
		}),
		DownloadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "konbata",
			Subsystem: "download",
			Name:      "duration_seconds",
			Help:      "Histogram of per-job download duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		ThumbnailsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "thumbnails",
			Name:      "requests_total",
			Help:      "Total number of thumbnail fetches by status",
		}, []string{"status"}),

		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Total number of orchestrator events by kind",
		}, []string{"kind"}),
		EventSubscriber: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "konbata",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Number of connected event stream subscribers",
		}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "konbata",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "konbata",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	return metrics
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RunTimer returns a function to record run duration.
func (m *Metrics) RunTimer() func() {
	if m == nil {
		return func() {}
	}

	start := time.Now()

	return func() {
		m.RunDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRunStarted records a started run.
func (m *Metrics) RecordRunStarted() {
	if m == nil {
		return
	}

	m.RunsStarted.Inc()
	m.RunActive.Set(1)
}

// RecordRunFinished records a finished run.
func (m *Metrics) RecordRunFinished(stopped bool) {
	if m == nil {
		return
	}

	m.RunsFinished.Inc()

	if stopped {
		m.RunsStopped.Inc()
	}

	m.RunActive.Set(0)
}

// RecordJobOutcome records a job reaching a terminal state.
func (m *Metrics) RecordJobOutcome(outcome string) {
	if m == nil {
		return
	}

	m.JobsByOutcome.WithLabelValues(outcome).Inc()
}

// RecordFetch records a metadata fetch result.
func (m *Metrics) RecordFetch(class, status string) {
	if m == nil {
		return
	}

	m.FetchesTotal.WithLabelValues(class, status).Inc()
}

// FetchStarted marks a metadata fetch as in flight. The returned function
// marks it finished and must be called exactly once.
func (m *Metrics) FetchStarted() func() {
	if m == nil {
		return func() {}
	}

	m.FetchInFlight.Inc()

	return m.FetchInFlight.Dec
}

// ObserveFetchDuration records how long a metadata fetch took.
func (m *Metrics) ObserveFetchDuration(d time.Duration) {
	if m == nil {
		return
	}

	m.FetchDuration.Observe(d.Seconds())
}

// RecordThumbnail records a thumbnail fetch result.
func (m *Metrics) RecordThumbnail(status string) {
	if m == nil {
		return
	}

	m.ThumbnailsTotal.WithLabelValues(status).Inc()
}

// RecordEvent records an emitted orchestrator event.
func (m *Metrics) RecordEvent(kind string) {
	if m == nil {
		return
	}

	m.EventsEmitted.WithLabelValues(kind).Inc()
}

// AddDownloadBytes adds downloaded bytes to the running total.
func (m *Metrics) AddDownloadBytes(n int) {
	if m == nil || n <= 0 {
		return
	}

	m.DownloadBytes.Add(float64(n))
}

// ObserveDownloadDuration records how long a job's download took.
func (m *Metrics) ObserveDownloadDuration(d time.Duration) {
	if m == nil {
		return
	}

	m.DownloadDuration.Observe(d.Seconds())
}

// SetEventSubscribers sets the number of connected event subscribers.
func (m *Metrics) SetEventSubscribers(count int) {
	if m == nil {
		return
	}

	m.EventSubscriber.Set(float64(count))
}
