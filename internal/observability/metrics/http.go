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
)

// HTTPServerMetrics instruments the intake API: generic request accounting
// plus intake-specific counters for accepted emails and staged attachments.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	emailsAcceptedTotal      *prometheus.CounterVec
	attachmentsStagedTotal   *prometheus.CounterVec
	registryAssetsImported   *prometheus.CounterVec
	registryImportFailsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	emailsAcceptedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "emails",
			Name:      "accepted_total",
			Help:      "Total emails accepted for processing.",
		},
		[]string{"service"},
	)
	attachmentsStagedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "emails",
			Name:      "attachments_staged_total",
			Help:      "Total attachments staged to object storage.",
		},
		[]string{"service"},
	)
	registryAssetsImported := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "registry",
			Name:      "assets_imported_total",
			Help:      "Total assets upserted through workbook imports.",
		},
		[]string{"service"},
	)
	registryImportFailsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "registry",
			Name:      "import_failures_total",
			Help:      "Total failed workbook imports.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		emailsAcceptedTotal,
		attachmentsStagedTotal,
		registryAssetsImported,
		registryImportFailsTotal,
	)

	return &HTTPServerMetrics{
		registry:                 registry,
		requestTotal:             requestTotal,
		requestDuration:          requestDuration,
		requestInFlight:          requestInFlight,
		emailsAcceptedTotal:      emailsAcceptedTotal,
		attachmentsStagedTotal:   attachmentsStagedTotal,
		registryAssetsImported:   registryAssetsImported,
		registryImportFailsTotal: registryImportFailsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := NewStatusRecorder(w)

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps record ids out of the path label.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/outcomes/"):
		return "/v1/outcomes/{outcome_id}"
	case strings.HasPrefix(path, "/v1/assets/") && path != "/v1/assets/import":
		return "/v1/assets/{asset_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordEmailAccepted(service string, attachments int) {
	m.emailsAcceptedTotal.WithLabelValues(service).Inc()
	if attachments > 0 {
		m.attachmentsStagedTotal.WithLabelValues(service).Add(float64(attachments))
	}
}

func (m *HTTPServerMetrics) RecordRegistryImport(service string, assets int, err error) {
	if err != nil {
		m.registryImportFailsTotal.WithLabelValues(service).Inc()
		return
	}
	m.registryAssetsImported.WithLabelValues(service).Add(float64(assets))
}

// StatusRecorder captures the status code and body size a handler writes so
// wrapping middleware can label metrics and access logs after the fact.
type StatusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (w *StatusRecorder) Status() int       { return w.status }
func (w *StatusRecorder) BytesWritten() int { return w.bytes }

func (w *StatusRecorder) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *StatusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *StatusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *StatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *StatusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
