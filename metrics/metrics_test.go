package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestOrderCounters(t *testing.T) {
	m := New()
	m.OrderCreated()
	m.OrderCreated()
	m.Transition("pending", "preparing")
	m.TransitionConflict()
	m.PublishFailed()
	m.CacheLookup(true)

	body := scrape(t, m)
	assert.Contains(t, body, "food_marketplace_orders_created_total 2")
	assert.Contains(t, body, `food_marketplace_order_transitions_total{from="pending",to="preparing"} 1`)
	assert.Contains(t, body, "food_marketplace_order_transition_conflicts_total 1")
	assert.Contains(t, body, "food_marketplace_events_publish_failures_total 1")
	assert.Contains(t, body, `food_marketplace_cache_lookups_total{result="hit"} 1`)
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/orders/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, scrape(t, m), `food_marketplace_http_requests_total{method="GET",path="/orders/:id",status="200"} 1`)
}
