package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics(reg, "")

	m.RecordCartMutation("add", nil)
	m.RecordCartMutation("add", nil)
	m.RecordCartMutation("remove", errors.New("disk"))
	m.SetCart(830000, 3)
	m.RecordCheckout("redirected")
	m.RecordPaymentReturn("success", false)
	m.RecordLogin(nil)
	m.RecordLogout()
	m.ObserveBackend("GET", "/api/products", "200", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("remove", "error")))
	assert.Equal(t, 830000.0, testutil.ToFloat64(m.CartValue))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CartItems))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutStarted.WithLabelValues("redirected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentReturns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logouts))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BackendRequests))
}

func TestBusinessMetrics_NilIsNoop(t *testing.T) {
	var m *BusinessMetrics

	assert.NotPanics(t, func() {
		m.RecordCartMutation("add", nil)
		m.SetCart(1, 1)
		m.RecordCheckout("busy")
		m.RecordPaymentReturn("failure", true)
		m.RecordLogin(nil)
		m.RecordLogout()
		m.ObserveBackend("GET", "/", "200", time.Second)
	})
}

func TestBusinessMetrics_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics(reg, "")
	m.RecordLogout()

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "caprieux_storefront_logouts_total")
}

func TestHTTPMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, reg, "test")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/metrics", m.Handler().ServeHTTP)

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/items/{id}", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `test_http_requests_total{method="GET",path="/items/{id}",status="418"} 3`))
}
