package metrics

import (
	"fmt"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OpsRoutes are the routes served by the ops server. Any other path is labelled
// "unmatched" so that scanners probing random URLs cannot grow the label set.
var OpsRoutes = []string{"/health", "/ready", "/metrics"}

type opsInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	notReady metric.Int64Counter
}

func newOpsInstruments(meter metric.Meter, namespace string) (*opsInstruments, error) {
	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_ops_requests_total", namespace),
		metric.WithDescription("Requests served by the ops server"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_ops_request_duration_seconds", namespace),
		metric.WithDescription("Ops request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		return nil, err
	}

	notReady, err := meter.Int64Counter(
		fmt.Sprintf("%s_ops_not_ready_total", namespace),
		metric.WithDescription("Readiness checks answered with 503"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	return &opsInstruments{requests: requests, duration: duration, notReady: notReady}, nil
}

// HTTPMetricsMiddleware counts and times ops server requests by route and status
// class, and counts failed readiness checks separately so that alerting does not
// need to parse status codes.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	instruments, err := newOpsInstruments(meterProvider.Meter(namespace), namespace)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		route := opsRoute(c.FullPath())
		status := c.Writer.Status()

		instruments.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("status_class", statusClass(status)),
		))
		instruments.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("route", route),
		))
		if route == "/ready" && status >= 500 {
			instruments.notReady.Add(ctx, 1)
		}
	}
}

func opsRoute(fullPath string) string {
	if slices.Contains(OpsRoutes, fullPath) {
		return fullPath
	}
	return "unmatched"
}

// statusClass maps 204 to "2xx".
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return fmt.Sprintf("%dxx", code/100)
}
