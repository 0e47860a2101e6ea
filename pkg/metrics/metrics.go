package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// cache
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// business
	sosCreatedTotal      *prometheus.CounterVec
	invitationsTotal     *prometheus.CounterVec
	locationsPropagated  prometheus.Counter
	businessCounter      *prometheus.CounterVec
	invitationsSweptLast prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path", "status"},
		),

		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key"},
		),

		cacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key"},
		),

		sosCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sos_requests_created_total",
				Help: "SOS requests created, by emergency type",
			},
			[]string{"sos_type"},
		),

		invitationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "family_invitations_total",
				Help: "Family invitation events, by outcome",
			},
			[]string{"outcome"},
		),

		locationsPropagated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "family_locations_propagated_total",
				Help: "Family member rows updated by bulk location propagation",
			},
		),

		businessCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "business_operations_total",
				Help: "Total number of business operations",
			},
			[]string{"operation", "status"},
		),

		invitationsSweptLast: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "family_invitations_expired_last_sweep",
				Help: "Invitations expired by the most recent sweep",
			},
		),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpResponseSize,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.sosCreatedTotal,
		m.invitationsTotal,
		m.locationsPropagated,
		m.businessCounter,
		m.invitationsSweptLast,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry lets other components (the rate limiter observer) register collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDB exports connection pool statistics for db.
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, responseSize int64) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.httpResponseSize.WithLabelValues(method, path, status).Observe(float64(responseSize))
}

func (m *Metrics) RecordCacheHit(key string) {
	m.cacheHitsTotal.WithLabelValues(key).Inc()
}

func (m *Metrics) RecordCacheMiss(key string) {
	m.cacheMissesTotal.WithLabelValues(key).Inc()
}

func (m *Metrics) RecordSosCreated(sosType string) {
	m.sosCreatedTotal.WithLabelValues(sosType).Inc()
}

// RecordInvitation counts an invitation event: created, accepted, already_member or expired.
func (m *Metrics) RecordInvitation(outcome string) {
	m.invitationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordInvitationSweep(expired int64) {
	m.invitationsSweptLast.Set(float64(expired))
	if expired > 0 {
		m.invitationsTotal.WithLabelValues("expired").Add(float64(expired))
	}
}

func (m *Metrics) RecordLocationsPropagated(n int64) {
	m.locationsPropagated.Add(float64(n))
}

func (m *Metrics) RecordBusinessOperation(operation, status string) {
	m.businessCounter.WithLabelValues(operation, status).Inc()
}
