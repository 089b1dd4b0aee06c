package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/v1/products/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/7", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/products/:id", "GET", "200"))
	assert.Equal(t, float64(3), got)
}

func TestMetrics_DomainCounters(t *testing.T) {
	m := New()

	m.OrderPlaced(1579)
	m.CouponAttempt(true)
	m.CouponAttempt(false)
	m.CouponAttempt(false)
	m.CartMutation("add")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ordersPlaced))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.couponAttempts.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cartMutations.WithLabelValues("add")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.OrderPlaced(100)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "storefront_orders_placed_total 1"))
}
