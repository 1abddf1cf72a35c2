package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	HandshakesTotal *prometheus.CounterVec
	PaymentsTotal   *prometheus.CounterVec
	SessionsActive  prometheus.Gauge
	FramesTotal     *prometheus.CounterVec
	PaymentDuration prometheus.Histogram
	RateLimited     prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg. Tests
// pass a fresh prometheus.NewRegistry so runs do not collide.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HandshakesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noisepay_handshakes_total",
				Help: "Noise handshakes by role and result",
			},
			[]string{"role", "result"},
		),
		PaymentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noisepay_payments_total",
				Help: "Payment negotiations by side and outcome",
			},
			[]string{"side", "outcome"},
		),
		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "noisepay_sessions_active",
				Help: "Currently established sessions",
			},
		),
		FramesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noisepay_frames_total",
				Help: "Transport frames by direction",
			},
			[]string{"direction"},
		),
		PaymentDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "noisepay_payment_duration_seconds",
				Help:    "Time from connect to terminal state",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		RateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Name: "noisepay_handshakes_rate_limited_total",
				Help: "Inbound connections dropped by the per-IP limiter",
			},
		),
		gatherer: reg,
	}
}

// Handshake counts one handshake attempt.
func (m *Metrics) Handshake(role string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.HandshakesTotal.WithLabelValues(role, result).Inc()
}

// Payment counts one terminal outcome and its duration.
func (m *Metrics) Payment(side, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PaymentsTotal.WithLabelValues(side, outcome).Inc()
	m.PaymentDuration.Observe(d.Seconds())
}

// SessionOpened and SessionClosed track live sessions.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.SessionsActive.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}

// Frame counts one transport frame ("in" or "out").
func (m *Metrics) Frame(direction string) {
	if m != nil {
		m.FramesTotal.WithLabelValues(direction).Inc()
	}
}

// Limited counts one rate-limited connection.
func (m *Metrics) Limited() {
	if m != nil {
		m.RateLimited.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
