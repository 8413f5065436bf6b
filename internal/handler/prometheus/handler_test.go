package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New("followup", prometheus.NewRegistry())

	engine := gin.New()
	engine.Use(h.Middleware())
	engine.GET("/api/patients/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	engine.GET("/api/metrics", h.Handler())

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/patients/42", nil))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `followup_http_requests_total{method="GET",path="/api/patients/:id",status="404"} 1`)
	assert.Contains(t, body, `followup_http_errors_total`)
}
