package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the broker collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessions     prometheus.Gauge
	rooms        prometheus.Gauge
	inbound      *prometheus.CounterVec
	malformed    prometheus.Counter
	rateLimited  prometheus.Counter
	evictions    prometheus.Counter
	deliveries   prometheus.Counter
	sendFailures prometheus.Counter
}

// New registers broker collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "broker",
			Name:      "sessions",
			Help:      "Live registered sessions.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "broker",
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "inbound_messages_total",
			Help:      "Inbound chat messages by meeting type.",
		}, []string{"type"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "malformed_messages_total",
			Help:      "Inbound frames dropped because they could not be parsed.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "rate_limited_messages_total",
			Help:      "Inbound frames dropped by the per-connection rate limit.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "evictions_total",
			Help:      "Connections closed because a new connection arrived from the same origin.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "deliveries_total",
			Help:      "Successful per-recipient sends.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "send_failures_total",
			Help:      "Failed per-recipient sends.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessions,
		m.rooms,
		m.inbound,
		m.malformed,
		m.rateLimited,
		m.evictions,
		m.deliveries,
		m.sendFailures,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetSessions(n int) {
	if m != nil {
		m.sessions.Set(float64(n))
	}
}

func (m *Metrics) SetRooms(n int) {
	if m != nil {
		m.rooms.Set(float64(n))
	}
}

func (m *Metrics) Inbound(kind string) {
	if m != nil {
		m.inbound.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Malformed() {
	if m != nil {
		m.malformed.Inc()
	}
}

func (m *Metrics) RateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *Metrics) Eviction() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *Metrics) Delivered() {
	if m != nil {
		m.deliveries.Inc()
	}
}

func (m *Metrics) SendFailed() {
	if m != nil {
		m.sendFailures.Inc()
	}
}
