// ABOUTME: Prometheus metrics for sessions, renewals, asks, and RPC outcomes
// ABOUTME: Uses a private registry; every recording method is safe on a nil *Metrics

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatbot"

// Removal reasons used as the "reason" label of sessions_removed_total.
const (
	ReasonDeleted   = "deleted"
	ReasonReclaimed = "reclaimed"
	ReasonShutdown  = "shutdown"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	sessionsLive     prometheus.Gauge
	sessionsCreated  prometheus.Counter
	sessionsRejected prometheus.Counter
	sessionsRemoved  *prometheus.CounterVec
	renewals         *prometheus.CounterVec
	asks             *prometheus.CounterVec
	askDuration      prometheus.Histogram
	rpcs             *prometheus.CounterVec
}

// New creates and registers all metrics, plus the Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		sessionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_live",
			Help:      "Number of sessions currently registered",
		}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		sessionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_rejected_total",
			Help:      "Total number of session creations rejected for capacity",
		}),
		sessionsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_removed_total",
			Help:      "Total number of sessions removed, by reason",
		}, []string{"reason"}),
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewals_total",
			Help:      "Total number of agent renewals, by result",
		}, []string{"result"}),
		asks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asks_total",
			Help:      "Total number of asks, by result",
		}, []string{"result"}),
		askDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ask_duration_seconds",
			Help:      "Duration of agent asks in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpcs_total",
			Help:      "Total number of RPCs handled, by method and status code",
		}, []string{"method", "code"}),
	}

	registry.MustRegister(
		m.sessionsLive,
		m.sessionsCreated,
		m.sessionsRejected,
		m.sessionsRemoved,
		m.renewals,
		m.asks,
		m.askDuration,
		m.rpcs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetLiveSessions records the current registry size.
func (m *Metrics) SetLiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsLive.Set(float64(n))
}

// SessionCreated counts a successful creation.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

// SessionRejected counts a creation refused for capacity.
func (m *Metrics) SessionRejected() {
	if m == nil {
		return
	}
	m.sessionsRejected.Inc()
}

// SessionsRemoved counts n removals for reason.
func (m *Metrics) SessionsRemoved(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsRemoved.WithLabelValues(reason).Add(float64(n))
}

// Renewal counts one renewal attempt.
func (m *Metrics) Renewal(err error) {
	if m == nil {
		return
	}
	m.renewals.WithLabelValues(result(err)).Inc()
}

// Ask records one ask and its latency. result is a short outcome label such
// as "ok", "agent_error" or "rate_limited".
func (m *Metrics) Ask(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.asks.WithLabelValues(result).Inc()
	m.askDuration.Observe(d.Seconds())
}

// RPC counts one finished RPC.
func (m *Metrics) RPC(method, code string) {
	if m == nil {
		return
	}
	m.rpcs.WithLabelValues(method, code).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
