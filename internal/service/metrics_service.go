package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
)

// Grade transfer run outcomes.
const (
	SyncOutcomeCompleted = "completed"
	SyncOutcomeFailed    = "failed"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	syncRuns        *prometheus.CounterVec
	syncRows        *prometheus.CounterVec
	syncDuration    prometheus.Observer
	syncBackoff     prometheus.Observer
	oauthCallbacks  *prometheus.CounterVec
	jobsEnqueued    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gradesync_runs_total",
		Help: "Grade transfer runs by outcome",
	}, []string{"outcome"})

	syncRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gradesync_rows_total",
		Help: "Grade transfer result rows by status",
	}, []string{"status"})

	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gradesync_run_duration_seconds",
		Help:    "Wall time of grade transfer runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	syncBackoff := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gradesync_backoff_seconds",
		Help:    "Pauses taken after the LMS rate limit ran low",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	oauthCallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_oauth_callbacks_total",
		Help: "OAuth callbacks by outcome",
	}, []string{"outcome"})

	jobsEnqueued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gradesync_jobs_enqueued_total",
		Help: "Grade transfer jobs accepted for execution",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, syncRuns, syncRows, syncDuration, syncBackoff, oauthCallbacks, jobsEnqueued, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		syncRuns:        syncRuns,
		syncRows:        syncRows,
		syncDuration:    syncDuration,
		syncBackoff:     syncBackoff,
		oauthCallbacks:  oauthCallbacks,
		jobsEnqueued:    jobsEnqueued,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSyncRun records a finished grade transfer and the rows it produced.
func (m *MetricsService) ObserveSyncRun(outcome string, report *models.SyncReport, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
	m.syncDuration.Observe(duration.Seconds())
	for status, n := range report.Counts() {
		m.syncRows.WithLabelValues(string(status)).Add(float64(n))
	}
}

// ObserveBackoff records a rate limit pause.
func (m *MetricsService) ObserveBackoff(d time.Duration) {
	if m == nil {
		return
	}
	m.syncBackoff.Observe(d.Seconds())
}

// ObserveOAuthCallback counts callback outcomes.
func (m *MetricsService) ObserveOAuthCallback(outcome string) {
	if m == nil {
		return
	}
	m.oauthCallbacks.WithLabelValues(outcome).Inc()
}

// RecordJobEnqueued counts accepted grade transfer jobs.
func (m *MetricsService) RecordJobEnqueued() {
	if m == nil {
		return
	}
	m.jobsEnqueued.Inc()
}
