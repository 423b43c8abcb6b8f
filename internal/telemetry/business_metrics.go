package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const DefaultNamespace = "caprieux"

// BusinessMetrics holds Prometheus metrics for the storefront client. A nil
// *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	// Cart
	CartMutations *prometheus.CounterVec
	CartValue     prometheus.Gauge
	CartItems     prometheus.Gauge

	// Checkout funnel
	CheckoutStarted *prometheus.CounterVec
	PaymentReturns  *prometheus.CounterVec
	WebhookFailed   prometheus.Counter

	// Auth
	Logins  *prometheus.CounterVec
	Logouts prometheus.Counter

	// Backend API performance
	BackendRequests *prometheus.HistogramVec
}

// NewBusinessMetrics creates the metrics and registers them with reg.
func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)
	subsystem := "storefront"

	return &BusinessMetrics{
		// =======================================================================
		// Cart
		// =======================================================================
		CartMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_mutations_total",
				Help:      "Cart mutations by operation and result",
			},
			[]string{"operation", "result"},
		),
		CartValue: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_subtotal_vnd",
				Help:      "Current cart subtotal in VND",
			},
		),
		CartItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items",
				Help:      "Current number of units in the cart",
			},
		),

		// =======================================================================
		// Checkout Funnel
		// =======================================================================
		CheckoutStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_submissions_total",
				Help:      "Checkout submissions by result",
			},
			[]string{"result"}, // result: redirected, invalid, empty_cart, busy, no_link, backend_error
		),
		PaymentReturns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_returns_total",
				Help:      "Payment provider redirects by outcome",
			},
			[]string{"outcome"},
		),
		WebhookFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_failures_total",
				Help:      "Webhook posts that failed after a payment return",
			},
		),

		// =======================================================================
		// Auth
		// =======================================================================
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "logins_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
		Logouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "logouts_total",
				Help:      "Completed sign-outs",
			},
		),

		// =======================================================================
		// Backend API
		// =======================================================================
		BackendRequests: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "backend_request_duration_seconds",
				Help:      "Backend REST call latency",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route", "status"},
		),
	}
}

// RecordCartMutation counts one cart operation.
func (m *BusinessMetrics) RecordCartMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(operation, result(err)).Inc()
}

// SetCart publishes the current cart totals.
func (m *BusinessMetrics) SetCart(subtotal int64, items int) {
	if m == nil {
		return
	}
	m.CartValue.Set(float64(subtotal))
	m.CartItems.Set(float64(items))
}

func (m *BusinessMetrics) RecordCheckout(resultLabel string) {
	if m == nil {
		return
	}
	m.CheckoutStarted.WithLabelValues(resultLabel).Inc()
}

func (m *BusinessMetrics) RecordPaymentReturn(outcome string, webhookOK bool) {
	if m == nil {
		return
	}
	m.PaymentReturns.WithLabelValues(outcome).Inc()
	if !webhookOK {
		m.WebhookFailed.Inc()
	}
}

func (m *BusinessMetrics) RecordLogin(err error) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result(err)).Inc()
}

func (m *BusinessMetrics) RecordLogout() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

// ObserveBackend records one backend call. status is "error" when no
// response was received.
func (m *BusinessMetrics) ObserveBackend(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
