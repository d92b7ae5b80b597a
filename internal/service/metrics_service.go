package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API,
// the reconciliation engine, and the CAMS load pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	reconcileRuns   prometheus.Counter
	reconcileDelta  prometheus.Counter
	loadRuns        *prometheus.CounterVec
	loadRows        *prometheus.CounterVec
	loadDuration    prometheus.Observer
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
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	reconcileRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gcis_reconcile_runs_total",
		Help: "Total reconciliation runs",
	})

	reconcileDelta := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gcis_reconcile_changes_total",
		Help: "Total changed, added and deleted rows surfaced by reconciliation runs",
	})

	loadRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcis_load_runs_total",
		Help: "Total CAMS load runs by outcome",
	}, []string{"outcome"})

	loadRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcis_load_rows_total",
		Help: "Total rows written by CAMS load runs, per table",
	}, []string{"table"})

	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gcis_load_duration_seconds",
		Help:    "Duration of CAMS load runs",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		reconcileRuns, reconcileDelta, loadRuns, loadRows, loadDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		reconcileRuns:   reconcileRuns,
		reconcileDelta:  reconcileDelta,
		loadRuns:        loadRuns,
		loadRows:        loadRows,
		loadDuration:    loadDuration,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a change-summary cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveReconcile records one reconciliation run and its surfaced row count.
func (m *MetricsService) ObserveReconcile(totalChanges int) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
	m.reconcileDelta.Add(float64(totalChanges))
}

// ObserveLoadRun records the outcome and duration of a CAMS load run.
func (m *MetricsService) ObserveLoadRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.loadRuns.WithLabelValues(outcome).Inc()
	m.loadDuration.Observe(duration.Seconds())
}

// ObserveLoadRows records rows written into one table during a load run.
func (m *MetricsService) ObserveLoadRows(table string, rows int) {
	if m == nil {
		return
	}
	m.loadRows.WithLabelValues(table).Add(float64(rows))
}
