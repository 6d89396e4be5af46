package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/student-records/internal/models"
)

// MetricsService owns the Prometheus registry and keeps counters for the JSON metrics snapshot.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	queryDuration   *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	storeRecords    prometheus.Gauge
	historyEntries  prometheus.Gauge
	persistFailures prometheus.Counter
	persistDuration prometheus.Histogram

	cacheHitCount      uint64
	cacheMissCount     uint64
	requestCount       uint64
	queryCount         uint64
	queryErrorCount    uint64
	queryDurationTotal uint64
}

// NewMetricsService registers the service collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "query_cache_latency_seconds",
			Help:    "Latency for query cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "query_cache_write_seconds",
			Help:    "Latency for query cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "query_cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Total query cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "query_cache_misses_total",
			Help: "Total query cache misses",
		}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "query_duration_seconds",
			Help:    "Duration of query evaluation by outcome code",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_mutations_total",
			Help: "Applied store mutations by action",
		}, []string{"action"}),
		storeRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "store_records",
			Help: "Number of records currently held",
		}),
		historyEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "history_entries",
			Help: "Number of undoable operations retained",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "persist_failures_total",
			Help: "Snapshot persistence jobs abandoned after retries",
		}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "persist_duration_seconds",
			Help:    "Duration of snapshot persistence",
			Buckets: prometheus.DefBuckets,
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.queryDuration, m.mutations, m.storeRecords, m.historyEntries,
		m.persistFailures, m.persistDuration,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records a cache hit or miss and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveQuery records one query evaluation. outcome is "ok" or an error code.
func (m *MetricsService) ObserveQuery(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	atomic.AddUint64(&m.queryCount, 1)
	atomic.AddUint64(&m.queryDurationTotal, uint64(duration.Nanoseconds()))
	if outcome != "ok" {
		atomic.AddUint64(&m.queryErrorCount, 1)
	}
}

// RecordMutation counts an applied store mutation, including undo replays.
func (m *MetricsService) RecordMutation(action string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(action).Inc()
}

// SetStoreSize publishes current store and history sizes.
func (m *MetricsService) SetStoreSize(records, history int) {
	if m == nil {
		return
	}
	m.storeRecords.Set(float64(records))
	m.historyEntries.Set(float64(history))
}

// ObservePersist records a snapshot write.
func (m *MetricsService) ObservePersist(duration time.Duration) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(duration.Seconds())
}

// RecordPersistFailure counts an abandoned persistence job.
func (m *MetricsService) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// Snapshot returns aggregated counters for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{GeneratedAt: time.Now().UTC()}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	queries := atomic.LoadUint64(&m.queryCount)
	queryDuration := atomic.LoadUint64(&m.queryDurationTotal)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	var avgQueryMs float64
	if queries > 0 {
		avgQueryMs = float64(queryDuration) / float64(queries) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:          ratio,
		CacheHits:              hits,
		CacheMisses:            misses,
		RequestsTotal:          atomic.LoadUint64(&m.requestCount),
		QueriesTotal:           queries,
		QueryErrors:            atomic.LoadUint64(&m.queryErrorCount),
		AverageQueryDurationMs: avgQueryMs,
		Goroutines:             runtime.NumGoroutine(),
		GeneratedAt:            time.Now().UTC(),
	}
}
