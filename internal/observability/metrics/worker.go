package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	indexTotal    *prometheus.CounterVec
	indexDuration *prometheus.HistogramVec
	indexInFlight prometheus.Gauge
	venueChunks   *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hanoigo",
			Subsystem: "worker",
			Name:      "venue_index_total",
			Help:      "Total indexed venues by status.",
		},
		[]string{"service", "status"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hanoigo",
			Subsystem: "worker",
			Name:      "venue_index_duration_seconds",
			Help:      "Venue indexing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	indexInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hanoigo",
			Subsystem: "worker",
			Name:      "venue_index_in_flight",
			Help:      "Number of in-flight venue indexing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	venueChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hanoigo",
			Subsystem: "worker",
			Name:      "venue_chunks",
			Help:      "Distribution of indexed chunks per venue.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	registry.MustRegister(indexTotal, indexDuration, indexInFlight, venueChunks)

	return &WorkerMetrics{
		registry:      registry,
		indexTotal:    indexTotal,
		indexDuration: indexDuration,
		indexInFlight: indexInFlight,
		venueChunks:   venueChunks,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartVenue() {
	m.indexInFlight.Inc()
}

func (m *WorkerMetrics) FinishVenue(service string, duration time.Duration, err error) {
	m.indexInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.indexTotal.WithLabelValues(service, status).Inc()
	m.indexDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveVenueChunks(service string, chunks int) {
	if chunks <= 0 {
		return
	}
	m.venueChunks.WithLabelValues(service).Observe(float64(chunks))
}
