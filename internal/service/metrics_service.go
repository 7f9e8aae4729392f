package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the collectors the API
// feeds: HTTP traffic, cache effectiveness, review backlog and succession
// cascades.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	pendingRequests prometheus.Gauge
	cascadeDepth    prometheus.Histogram
}

// NewMetricsService registers the collectors.
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

	pendingRequests := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "change_requests_pending",
		Help: "Change requests currently awaiting review",
	})

	cascadeDepth := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "succession_cascade_depth",
		Help:    "Number of substitute promotions triggered per finalize",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})

	registry.MustRegister(
		requestDuration,
		requestTotal,
		cacheHits,
		cacheMisses,
		pendingRequests,
		cascadeDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		pendingRequests: pendingRequests,
		cascadeDepth:    cascadeDepth,
	}
}

// Handler serves the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheHit counts a cache hit.
func (s *MetricsService) RecordCacheHit() {
	s.cacheHits.Inc()
}

// RecordCacheMiss counts a cache miss.
func (s *MetricsService) RecordCacheMiss() {
	s.cacheMisses.Inc()
}

// SetPendingChangeRequests publishes the review backlog size.
func (s *MetricsService) SetPendingChangeRequests(count int64) {
	s.pendingRequests.Set(float64(count))
}

// ObserveCascadeDepth records how many substitutes a finalize promoted.
func (s *MetricsService) ObserveCascadeDepth(depth int) {
	s.cascadeDepth.Observe(float64(depth))
}
