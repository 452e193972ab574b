// Package metrics provides Prometheus-based metrics collection for
// scanlab: scan lifecycle counters, device discovery totals, store and
// HTTP instrumentation, and worker pool activity.
package metrics

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "scanlab"

	subsystemScan    = "scan"
	subsystemDevice  = "device"
	subsystemStore   = "store"
	subsystemAPI     = "api"
	subsystemWorkers = "workers"
	subsystemSystem  = "system"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	// Scan metrics
	scansTotal   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	scanErrors   *prometheus.CounterVec
	activeScans  prometheus.Gauge

	// Device metrics
	devicesDiscovered *prometheus.CounterVec

	// Store metrics
	storeQueries       *prometheus.CounterVec
	storeQueryDuration *prometheus.HistogramVec

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	// Worker pool metrics
	jobsSubmitted  *prometheus.CounterVec
	jobsCompleted  *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	workerPoolSize prometheus.Gauge

	// System metrics
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	uptime      prometheus.Gauge

	startTime time.Time
	registry  *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		startTime: time.Now(),
		registry:  registry,
	}

	m.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scans by type and terminal status",
		},
		[]string{"scan_type", "status"},
	)
	m.scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of scan operations in seconds",
			Buckets:   []float64{0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0},
		},
		[]string{"scan_type"},
	)
	m.scanErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "errors_total",
			Help:      "Total number of rejected or failed scans by reason",
		},
		[]string{"scan_type", "reason"},
	)
	m.activeScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "active",
			Help:      "Number of currently running scans",
		},
	)

	m.devicesDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDevice,
			Name:      "discovered_total",
			Help:      "Total number of devices discovered by scan type and device type",
		},
		[]string{"scan_type", "device_type"},
	)

	m.storeQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "queries_total",
			Help:      "Total number of store operations by name and status",
		},
		[]string{"operation", "status"},
	)
	m.storeQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "query_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"method", "path"},
	)

	m.jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs submitted to the worker pool",
		},
		[]string{"job_type"},
	)
	m.jobsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs completed by type and status",
		},
		[]string{"job_type", "status"},
	)
	m.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "job_duration_seconds",
			Help:      "Duration of worker pool jobs in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 60.0, 300.0, 600.0},
		},
		[]string{"job_type"},
	)
	m.workerPoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "pool_size",
			Help:      "Number of worker goroutines in the pool",
		},
	)

	m.memoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "memory_bytes",
			Help:      "Current memory usage in bytes",
		},
	)
	m.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)
	m.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)

	registry.MustRegister(
		m.scansTotal, m.scanDuration, m.scanErrors, m.activeScans,
		m.devicesDiscovered,
		m.storeQueries, m.storeQueryDuration,
		m.httpRequests, m.httpDuration,
		m.jobsSubmitted, m.jobsCompleted, m.jobDuration, m.workerPoolSize,
		m.memoryUsage, m.goroutines, m.uptime,
	)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Scan metrics

func (m *Metrics) IncrementScansTotal(scanType, status string) {
	m.scansTotal.WithLabelValues(scanType, status).Inc()
}

func (m *Metrics) RecordScanDuration(scanType string, duration time.Duration) {
	m.scanDuration.WithLabelValues(scanType).Observe(duration.Seconds())
}

func (m *Metrics) IncrementScanErrors(scanType, reason string) {
	m.scanErrors.WithLabelValues(scanType, reason).Inc()
}

func (m *Metrics) SetActiveScans(count int) {
	m.activeScans.Set(float64(count))
}

func (m *Metrics) IncrementDevicesDiscovered(scanType, deviceType string, count int) {
	m.devicesDiscovered.WithLabelValues(scanType, deviceType).Add(float64(count))
}

// Store metrics

func (m *Metrics) RecordStoreQuery(operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.storeQueries.WithLabelValues(operation, status).Inc()
	m.storeQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// API metrics

func (m *Metrics) IncrementHTTPRequests(method, path, status string) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
}

func (m *Metrics) RecordHTTPDuration(method, path string, duration time.Duration) {
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Worker pool metrics

func (m *Metrics) IncrementJobsSubmitted(jobType string) {
	m.jobsSubmitted.WithLabelValues(jobType).Inc()
}

func (m *Metrics) IncrementJobsCompleted(jobType, status string) {
	m.jobsCompleted.WithLabelValues(jobType, status).Inc()
}

func (m *Metrics) RecordJobDuration(jobType string, duration time.Duration) {
	m.jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

func (m *Metrics) SetWorkerPoolSize(count int) {
	m.workerPoolSize.Set(float64(count))
}

// System metrics

// UpdateSystemMetrics refreshes the memory, goroutine and uptime gauges.
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.memoryUsage.Set(float64(memStats.Alloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.uptime.Set(time.Since(m.startTime).Seconds())
}

// StartPeriodicUpdates refreshes system metrics until the context ends.
func (m *Metrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.UpdateSystemMetrics()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.UpdateSystemMetrics()
		}
	}
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Global returns the process-wide metrics instance.
func Global() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = New()
	})
	return globalMetrics
}
