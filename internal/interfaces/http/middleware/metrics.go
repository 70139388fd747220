package middleware

import (
	"fmt"
	"time"

	"github.com/arflow/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	active   metric.Int64UpDownCounter
}

// HTTPMetrics records request count, latency and in-flight requests on
// meter. Routes are labelled by pattern, never by raw path.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	requests, err := telemetry.NewCounter(meter, "arflow_http_requests_total", "HTTP requests by method, route and status class")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, "arflow_http_request_duration_seconds", "HTTP request latency", "s", telemetry.DurationBuckets)
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("arflow_http_active_requests",
		metric.WithDescription("Requests currently being served"))
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}
	m := &httpMetrics{requests: requests, duration: duration, active: active}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.active.Add(ctx, 1)
		defer m.active.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("http.status_class", StatusClass(c.Writer.Status())),
		}
		m.requests.Inc(ctx, attrs...)
		m.duration.RecordDuration(ctx, time.Since(start), attrs[:2]...)
	}, nil
}

// StatusClass groups a status code into 2xx, 3xx, 4xx or 5xx
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
