package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the backend reports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	signins         *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	attestations    *prometheus.CounterVec
	ledgerLatency   prometheus.Histogram
	tasksCreated    prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turks",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "turks",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turks",
			Name:      "signins_total",
			Help:      "Successful sign-ins by role.",
		}, []string{"role"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turks",
			Name:      "auth_failures_total",
			Help:      "Rejected credentials and signatures by kind.",
		}, []string{"kind"}),
		attestations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turks",
			Name:      "payment_attestations_total",
			Help:      "Payment attestation outcomes.",
		}, []string{"outcome"}),
		ledgerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "turks",
			Name:      "ledger_lookup_duration_seconds",
			Help:      "Latency of ledger transaction lookups, retries included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		tasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turks",
			Name:      "tasks_created_total",
			Help:      "Tasks persisted.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration, m.signins, m.authFailures,
		m.attestations, m.ledgerLatency, m.tasksCreated,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) SignIn(role string) {
	if m == nil {
		return
	}
	m.signins.WithLabelValues(role).Inc()
}

func (m *Metrics) AuthFailure(kind string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(kind).Inc()
}

// Attestation records "ok" or the failure kind.
func (m *Metrics) Attestation(outcome string) {
	if m == nil {
		return
	}
	m.attestations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LedgerLookup(d time.Duration) {
	if m == nil {
		return
	}
	m.ledgerLatency.Observe(d.Seconds())
}

func (m *Metrics) TaskCreated() {
	if m == nil {
		return
	}
	m.tasksCreated.Inc()
}
