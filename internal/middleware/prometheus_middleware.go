package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMiddleware HTTP-метрики административного API:
//   - blockverse_admin_http_request_duration_seconds{method,path,status}
//   - blockverse_admin_http_requests_inflight
//   - blockverse_admin_http_request_errors_total{method,path,status} (4xx/5xx)
type PrometheusMiddleware struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
}

var (
	httpMetrics     *PrometheusMiddleware
	httpMetricsOnce sync.Once
)

// NewPrometheusMiddleware возвращает middleware; коллекторы регистрируются
// в глобальном реестре один раз на процесс.
func NewPrometheusMiddleware() *PrometheusMiddleware {
	httpMetricsOnce.Do(func() {
		const ns, sub = "blockverse", "admin"
		httpMetrics = &PrometheusMiddleware{
			reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "http_request_duration_seconds",
				Help:      "Длительность HTTP-запросов.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			}, []string{"method", "path", "status"}),
			reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "http_requests_inflight",
				Help:      "Текущее количество обрабатываемых HTTP-запросов.",
			}),
			reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "http_request_errors_total",
				Help:      "Запросы, завершившиеся ошибкой (4xx/5xx).",
			}, []string{"method", "path", "status"}),
		}
		prometheus.MustRegister(httpMetrics.reqDuration, httpMetrics.reqInflight, httpMetrics.reqErrors)
	})
	return httpMetrics
}

// Handler подключается через router.Use()
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		pm.reqInflight.Inc()
		c.Next()
		pm.reqInflight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		path := routeOf(c)
		method := c.Request.Method

		pm.reqDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		if c.Writer.Status() >= 400 {
			pm.reqErrors.WithLabelValues(method, path, status).Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r gin.IRoutes) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
