package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanoigo/assistant/internal/cache"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	assistRequestsTotal  *prometheus.CounterVec
	assistHitTotal       *prometheus.CounterVec
	assistNoResultsTotal *prometheus.CounterVec
	assistCandidates     *prometheus.HistogramVec
	assistDuration       *prometheus.HistogramVec
	strategyHitsTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hanoigo",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hanoigo",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hanoigo",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	assistRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hanoigo",
			Subsystem: "assist",
			Name:      "requests_total",
			Help:      "Total successful assist requests.",
		},
		[]string{"service", "endpoint"},
	)
	assistHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hanoigo",
			Subsystem: "assist",
			Name:      "result_hit_total",
			Help:      "Total assist requests with at least one candidate.",
		},
		[]string{"service", "endpoint"},
	)
	assistNoResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hanoigo",
			Subsystem: "assist",
			Name:      "no_results_total",
			Help:      "Total assist requests that returned zero candidates.",
		},
		[]string{"service", "endpoint"},
	)
	assistCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hanoigo",
			Subsystem: "assist",
			Name:      "candidates",
			Help:      "Distribution of returned candidates per assist request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	assistDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hanoigo",
			Subsystem: "assist",
			Name:      "duration_seconds",
			Help:      "Assist pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	strategyHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hanoigo",
			Subsystem: "retrieval",
			Name:      "strategy_hits_total",
			Help:      "Candidates returned per retrieval strategy.",
		},
		[]string{"service", "strategy"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		assistRequestsTotal,
		assistHitTotal,
		assistNoResultsTotal,
		assistCandidates,
		assistDuration,
		strategyHitsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		assistRequestsTotal:  assistRequestsTotal,
		assistHitTotal:       assistHitTotal,
		assistNoResultsTotal: assistNoResultsTotal,
		assistCandidates:     assistCandidates,
		assistDuration:       assistDuration,
		strategyHitsTotal:    strategyHitsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/venues/"):
		return "/api/v1/venues/{venue_id}/reindex"
	default:
		return path
	}
}

// RecordAssistObservation records one completed assist request.
func (m *HTTPServerMetrics) RecordAssistObservation(service, endpoint string, candidateCount int, duration time.Duration) {
	m.assistRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.assistCandidates.WithLabelValues(service, endpoint).Observe(float64(candidateCount))
	m.assistDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if candidateCount > 0 {
		m.assistHitTotal.WithLabelValues(service, endpoint).Inc()
		return
	}
	m.assistNoResultsTotal.WithLabelValues(service, endpoint).Inc()
}

// RecordStrategyHit attributes one returned candidate to the retrieval
// strategy that produced it.
func (m *HTTPServerMetrics) RecordStrategyHit(service, strategy string) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.strategyHitsTotal.WithLabelValues(service, strategy).Inc()
}

// CacheStatsSource is satisfied by *cache.Client.
type CacheStatsSource interface {
	Stats() cache.Stats
}

// RegisterCacheStats exposes the cache client's counters and breaker state
// on the registry. Call once during bootstrap.
func (m *HTTPServerMetrics) RegisterCacheStats(service string, source CacheStatsSource) {
	counter := func(name, help string, value func(cache.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   "hanoigo",
				Subsystem:   "cache",
				Name:        name,
				Help:        help,
				ConstLabels: prometheus.Labels{"service": service},
			},
			func() float64 { return float64(value(source.Stats())) },
		)
	}

	m.registry.MustRegister(
		counter("hits_total", "Total cache hits.", func(s cache.Stats) int64 { return s.Hits }),
		counter("misses_total", "Total cache misses.", func(s cache.Stats) int64 { return s.Misses }),
		counter("sets_total", "Total cache writes.", func(s cache.Stats) int64 { return s.Sets }),
		counter("deletes_total", "Total cache invalidations.", func(s cache.Stats) int64 { return s.Deletes }),
		counter("errors_total", "Total cache backend errors.", func(s cache.Stats) int64 { return s.Errors }),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   "hanoigo",
				Subsystem:   "cache",
				Name:        "breaker_state",
				Help:        "Cache circuit breaker state (0 closed, 1 half-open, 2 open).",
				ConstLabels: prometheus.Labels{"service": service},
			},
			func() float64 { return breakerStateValue(source.Stats().BreakerState) },
		),
	)
}

func breakerStateValue(state string) float64 {
	switch state {
	case "open":
		return 2
	case "half-open":
		return 1
	default:
		return 0
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
