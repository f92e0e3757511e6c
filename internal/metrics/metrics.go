package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weekend"

// Cycle outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeNoSeason  = "no_season"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the service's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	pollCycles   *prometheus.CounterVec
	pollDuration prometheus.Histogram
	pollInterval prometheus.Gauge
	sessionLive  prometheus.Gauge
	wsClients    prometheus.Gauge
	rollovers    prometheus.Counter
	sinkErrors   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		pollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Refresh cycles by outcome.",
		}, []string{"outcome"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of one refresh cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		pollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_interval_seconds",
			Help:      "Delay before the next refresh cycle.",
		}),
		sessionLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_live",
			Help:      "1 while the resolved session is live.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
		rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "year_rollovers_total",
			Help:      "Cycles that fell back to the next season.",
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed writes to state sinks.",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		m.pollCycles,
		m.pollDuration,
		m.pollInterval,
		m.sessionLive,
		m.wsClients,
		m.rollovers,
		m.sinkErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records one refresh cycle. Nil receivers are no-ops so components
// can run without metrics in tests.
func (m *Metrics) ObserveCycle(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(outcome).Inc()
	m.pollDuration.Observe(took.Seconds())
}

func (m *Metrics) SetInterval(d time.Duration) {
	if m == nil {
		return
	}
	m.pollInterval.Set(d.Seconds())
}

func (m *Metrics) SetLive(live bool) {
	if m == nil {
		return
	}
	if live {
		m.sessionLive.Set(1)
		return
	}
	m.sessionLive.Set(0)
}

func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

func (m *Metrics) IncRollover() {
	if m == nil {
		return
	}
	m.rollovers.Inc()
}

func (m *Metrics) IncSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}
