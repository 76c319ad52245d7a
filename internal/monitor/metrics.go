package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects data source and API metrics. Each Metrics instance
// carries its own registry so tests can construct them freely.
type Metrics struct {
	registry *prometheus.Registry

	// 数据源相关指标
	sourceAttempts  *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	registryReloads prometheus.Counter

	// API相关指标
	apiRequests     *prometheus.CounterVec
	apiResponseTime *prometheus.HistogramVec

	// 缓存相关指标
	cacheHits   *prometheus.CounterVec
	cacheMisses prometheus.Counter
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		sourceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockaggr_source_attempts_total",
			Help: "Data source call attempts by source, capability and outcome",
		}, []string{"source", "capability", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockaggr_source_attempt_duration_seconds",
			Help:    "Data source call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"source", "capability"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockaggr_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=open, 2=half_open)",
		}, []string{"source"}),
		registryReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockaggr_registry_reloads_total",
			Help: "Number of source registry rebuilds",
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockaggr_api_requests_total",
			Help: "API requests by method, path and status",
		}, []string{"method", "path", "status"}),
		apiResponseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockaggr_api_response_seconds",
			Help:    "API response latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockaggr_cache_hits_total",
			Help: "Response cache hits by layer",
		}, []string{"layer"}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockaggr_cache_misses_total",
			Help: "Response cache misses",
		}),
	}

	registry.MustRegister(
		m.sourceAttempts, m.attemptDuration, m.breakerState, m.registryReloads,
		m.apiRequests, m.apiResponseTime, m.cacheHits, m.cacheMisses,
	)

	return m
}

// RecordAttempt records one data source call attempt
func (m *Metrics) RecordAttempt(source, capability, outcome string, duration time.Duration) {
	m.sourceAttempts.WithLabelValues(source, capability, outcome).Inc()
	if duration > 0 {
		m.attemptDuration.WithLabelValues(source, capability).Observe(duration.Seconds())
	}
}

// SetBreakerState publishes the current breaker state for a source
func (m *Metrics) SetBreakerState(source string, state int) {
	m.breakerState.WithLabelValues(source).Set(float64(state))
}

// RecordRegistryReload counts one registry rebuild
func (m *Metrics) RecordRegistryReload() {
	m.registryReloads.Inc()
}

// RecordCacheHit counts one response cache hit
func (m *Metrics) RecordCacheHit(layer string) {
	m.cacheHits.WithLabelValues(layer).Inc()
}

// RecordCacheMiss counts one response cache miss
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// Handler returns the HTTP handler exposing this collector's registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware returns a gin middleware recording API metrics
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.apiRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.apiResponseTime.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
