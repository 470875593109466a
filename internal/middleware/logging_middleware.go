package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/blockverse/internal/logging"
)

// RequestLogger пишет по строке на начало и конец HTTP-запроса с trace-ID
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger логирует в компонент "http"
func NewRequestLogger() *RequestLogger {
	return &RequestLogger{logger: logging.GetComponentLogger("http")}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// trace-id берём из спана otelgin, если он есть
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)

		start := time.Now()
		method := c.Request.Method
		path := routeOf(c)

		rl.logger.Debug("▶ %s %s ip=%s trace=%s", method, path, c.ClientIP(), traceID)

		c.Next()

		status := c.Writer.Status()
		if status >= 500 {
			rl.logger.Warn("◀ %s %s %d %s trace=%s", method, path, status, time.Since(start), traceID)
			return
		}
		rl.logger.Info("◀ %s %s %d %s trace=%s", method, path, status, time.Since(start), traceID)
	}
}

// routeOf шаблон маршрута, для несопоставленных запросов сырой путь
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
