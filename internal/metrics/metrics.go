package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinicbook"

// Outcome labels for backend calls.
const (
	OutcomeOK          = "ok"
	OutcomeApplication = "application_error"
	OutcomeTransport   = "transport_error"
)

// Metrics owns a private registry so tests and embedded uses never collide on the default one.
type Metrics struct {
	Registry *prometheus.Registry

	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	paymentLandings *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		backendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "calls_total",
				Help:      "Backend calls by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		backendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "call_duration_seconds",
				Help:      "Duration of backend calls.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"action"},
		),
		paymentLandings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "landings_total",
				Help:      "Payment gateway redirects received by the callback listener.",
			},
			[]string{"result"},
		),
	}

	m.Registry.MustRegister(m.backendCalls, m.backendDuration, m.paymentLandings)
	return m
}

func (m *Metrics) ObserveBackendCall(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(action, outcome).Inc()
	m.backendDuration.WithLabelValues(action).Observe(d.Seconds())
}

func (m *Metrics) ObservePaymentLanding(result string) {
	if m == nil {
		return
	}
	m.paymentLandings.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
