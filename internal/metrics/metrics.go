// Package metrics exposes Prometheus collectors for the record engine and
// its HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns a registry and every collector registered on it. It
// satisfies services.Recorder.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Record engine
	mutations    *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	importRows   *prometheus.CounterVec
	restores     *prometheus.CounterVec
	migrations   *prometheus.CounterVec
	wsClients    prometheus.Gauge
	wsBroadcasts prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager. Without WithRegistry it uses a
// fresh registry so several managers can coexist in tests.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "talentscout",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.mutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "records",
		Name:      "mutations_total",
		Help:      "Committed record mutations by operation",
	}, []string{"operation"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Latency of record store calls",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	m.importRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Import rows by outcome",
	}, []string{"outcome"})

	m.restores = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "backup",
		Name:      "restores_total",
		Help:      "Snapshot restores by outcome",
	}, []string{"outcome"})

	m.migrations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "migrations_total",
		Help:      "Startup store migrations by outcome",
	}, []string{"outcome"})

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Connected change feed clients",
	})

	m.wsBroadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ws",
		Name:      "broadcasts_total",
		Help:      "Change notifications sent to the feed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method", "status_code"})
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordMutation counts a committed mutation.
func (m *Manager) RecordMutation(op string) {
	m.mutations.WithLabelValues(op).Inc()
}

// RecordStoreLatency observes the duration of a store call.
func (m *Manager) RecordStoreLatency(op string, d time.Duration) {
	m.storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordImportRows adds n rows to the outcome counter.
func (m *Manager) RecordImportRows(outcome string, n int) {
	m.importRows.WithLabelValues(outcome).Add(float64(n))
}

// RecordRestore counts a restore attempt.
func (m *Manager) RecordRestore(outcome string) {
	m.restores.WithLabelValues(outcome).Inc()
}

// RecordMigration counts a startup migration run.
func (m *Manager) RecordMigration(outcome string) {
	m.migrations.WithLabelValues(outcome).Inc()
}

// SetWSClients sets the connected feed client gauge.
func (m *Manager) SetWSClients(n int) {
	m.wsClients.Set(float64(n))
}

// RecordBroadcast counts a change notification.
func (m *Manager) RecordBroadcast() {
	m.wsBroadcasts.Inc()
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(route, method, statusCode string, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(d.Seconds())
}
