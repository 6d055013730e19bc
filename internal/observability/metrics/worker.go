package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// WorkerMetrics instruments the attachment pipeline: how many attachments
// reach each terminal status, how long processing takes, and how far behind
// the queue the worker is running.
type WorkerMetrics struct {
	registry *prometheus.Registry

	attachmentsTotal   *prometheus.CounterVec
	processDuration    *prometheus.HistogramVec
	processInFlight    prometheus.Gauge
	confidenceTierHits *prometheus.CounterVec
	queueLag           *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	attachmentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "pipeline",
			Name:      "attachments_total",
			Help:      "Total processed attachments by terminal status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "pipeline",
			Name:      "attachment_duration_seconds",
			Help:      "Attachment processing duration in seconds by terminal status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "pipeline",
			Name:      "attachments_in_flight",
			Help:      "Number of attachments currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	confidenceTierHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "pipeline",
			Name:      "confidence_tier_total",
			Help:      "Total routed attachments by confidence tier.",
		},
		[]string{"service", "tier"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between email receipt and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		attachmentsTotal,
		processDuration,
		processInFlight,
		confidenceTierHits,
		queueLag,
	)

	return &WorkerMetrics{
		registry:           registry,
		attachmentsTotal:   attachmentsTotal,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		confidenceTierHits: confidenceTierHits,
		queueLag:           queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartAttachment() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishAttachment(service string, outcome *domain.ProcessingOutcome, duration time.Duration) {
	m.processInFlight.Dec()

	status := string(domain.StatusError)
	if outcome != nil {
		status = string(outcome.Status)
	}
	m.attachmentsTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())

	if outcome != nil && outcome.Status == domain.StatusSuccess {
		m.confidenceTierHits.WithLabelValues(service, string(outcome.Tier)).Inc()
	}
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
