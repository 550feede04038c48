package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the
// scheduling engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	queuesCreated   prometheus.Counter
	queuesClosed    prometheus.Counter
	entriesJoined   prometheus.Counter
	assignments     *prometheus.CounterVec
	sweepDuration   *prometheus.HistogramVec
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_cache_hits_total",
		Help: "Total availability cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_cache_misses_total",
		Help: "Total availability cache misses",
	})

	queuesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daily_queues_created_total",
		Help: "Total daily service queues created",
	})

	queuesClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daily_queues_closed_total",
		Help: "Total daily service queues closed by sweeps",
	})

	entriesJoined := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queue_entries_joined_total",
		Help: "Total walk-in entries joined to queues",
	})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_assignments_total",
		Help: "Appointment queue assignments by outcome",
	}, []string{"outcome"})

	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queue_sweep_duration_seconds",
		Help:    "Duration of daily queue sweeps",
		Buckets: prometheus.DefBuckets,
	}, []string{"sweep"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		queuesCreated, queuesClosed, entriesJoined, assignments, sweepDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		queuesCreated:   queuesCreated,
		queuesClosed:    queuesClosed,
		entriesJoined:   entriesJoined,
		assignments:     assignments,
		sweepDuration:   sweepDuration,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheOperation records an availability cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, _ time.Duration) {
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordQueueCreated increments the created-queue counter.
func (m *MetricsService) RecordQueueCreated() {
	m.queuesCreated.Inc()
}

// RecordQueuesClosed adds to the closed-queue counter.
func (m *MetricsService) RecordQueuesClosed(count int64) {
	m.queuesClosed.Add(float64(count))
}

// RecordEntryJoined increments the joined-entry counter.
func (m *MetricsService) RecordEntryJoined() {
	m.entriesJoined.Inc()
}

// RecordAssignment counts an assignment outcome (assigned, existing, skipped).
func (m *MetricsService) RecordAssignment(outcome string) {
	m.assignments.WithLabelValues(outcome).Inc()
}

// ObserveSweep records the duration of a named sweep run.
func (m *MetricsService) ObserveSweep(name string, duration time.Duration) {
	m.sweepDuration.WithLabelValues(name).Observe(duration.Seconds())
}
