package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus counters/gauges for connection, validation,
// and peer-broadcast outcomes.
type Metrics struct {
	registry    *prometheus.Registry
	connections prometheus.Gauge
	validated   *prometheus.CounterVec
	errors      *prometheus.CounterVec
	peerSends   *prometheus.CounterVec
}

// NewMetrics returns a Metrics with its own private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "primacron",
			Name:      "connections_open",
			Help:      "Currently attached local connections.",
		}),
		validated: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "primacron",
			Name:      "validated_total",
			Help:      "Validated stream emissions, by event name.",
		}, []string{"event"}),
		errors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "primacron",
			Name:      "errors_total",
			Help:      "Gateway errors, by kind.",
		}, []string{"kind"}),
		peerSends: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "primacron",
			Name:      "peer_send_total",
			Help:      "Peer broadcast attempts, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveConnect()               { m.connections.Inc() }
func (m *Metrics) ObserveDisconnect()             { m.connections.Dec() }
func (m *Metrics) ObserveValidated(event string)  { m.validated.WithLabelValues(event).Inc() }
func (m *Metrics) ObserveError(kind string)       { m.errors.WithLabelValues(kind).Inc() }
func (m *Metrics) ObservePeerSend(outcome string) { m.peerSends.WithLabelValues(outcome).Inc() }

// ServeHTTP serves the Prometheus exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
