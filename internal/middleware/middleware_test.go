package middleware

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

func TestPrometheusCountsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	pm := NewPrometheusMiddleware()
	assert.Same(t, pm, NewPrometheusMiddleware(), "повторное создание не регистрирует метрики заново")

	r.Use(NewRequestLogger().Handler(), pm.Handler())
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	pm.RegisterMetricsEndpoint(r)

	before := testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/boom", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/boom", "418")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "blockverse_admin_http_request_errors_total"))
}

func TestRequestLoggerSetsTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRequestLogger().Handler())
	var traceID string
	r.GET("/x", func(c *gin.Context) { traceID = c.GetString("trace_id") })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, traceID)
}
