package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TelemetryService encapsulates Prometheus instrumentation for the API,
// the cache and the database layer.
type TelemetryService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	jobsEnqueued    *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewTelemetryService registers core Prometheus collectors.
func NewTelemetryService() *TelemetryService {
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	jobsEnqueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_jobs_total",
		Help: "Total notification jobs enqueued by type",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, dbQueryDuration, jobsEnqueued, goroutines)

	return &TelemetryService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		jobsEnqueued:    jobsEnqueued,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (t *TelemetryService) Handler() http.Handler {
	if t == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return t.handler
}

// ObserveHTTPRequest records per-request metrics.
func (t *TelemetryService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if t == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	t.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	t.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates the hit ratio.
func (t *TelemetryService) RecordCacheOperation(hit bool, duration time.Duration) {
	if t == nil {
		return
	}
	if t.cacheLatency != nil {
		t.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		t.cacheHits.Inc()
		atomic.AddUint64(&t.cacheHitCount, 1)
	} else {
		t.cacheMisses.Inc()
		atomic.AddUint64(&t.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&t.cacheHitCount)
	misses := atomic.LoadUint64(&t.cacheMissCount)
	if total := hits + misses; total > 0 {
		t.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration of cache set operations.
func (t *TelemetryService) ObserveCacheWrite(duration time.Duration) {
	if t == nil || t.cacheWrite == nil {
		return
	}
	t.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (t *TelemetryService) ObserveDBQuery(label string, duration time.Duration) {
	if t == nil {
		return
	}
	t.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordJobEnqueued counts a background notification job by type.
func (t *TelemetryService) RecordJobEnqueued(jobType string) {
	if t == nil {
		return
	}
	t.jobsEnqueued.WithLabelValues(jobType).Inc()
}
