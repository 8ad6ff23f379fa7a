package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	r.GET("/sos/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/sos/:id", "204"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sos/abc", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/sos/:id", "204"))
	assert.Equal(t, before+1, after)
}

func TestIncDeliveryOutcome(t *testing.T) {
	ok := testutil.ToFloat64(deliveriesTotal.WithLabelValues("email", "ok"))
	failed := testutil.ToFloat64(deliveriesTotal.WithLabelValues("email", "error"))

	IncDelivery("email", nil)
	IncDelivery("email", errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(deliveriesTotal.WithLabelValues("email", "ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(deliveriesTotal.WithLabelValues("email", "error")))
}
