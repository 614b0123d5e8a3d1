package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newHTTPMetrics(prometheus.NewRegistry(), Config{ServiceName: "ordersync"})

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/api/orders/:reference", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, ref := range []string{"ORD-1001", "ORD-1002"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/"+ref, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/orders/:reference", "200")))
}
