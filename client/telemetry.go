package client

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	scopeName = "requests-client/client"

	// Metric names following OTel semantic conventions where they exist.
	metricRequestDuration = "http.client.request.duration" // Histogram in seconds
	metricRequests        = "requests_client.requests"     // Counter per round trip
	metricRetries         = "requests_client.retries"      // Counter per retried attempt

	attrClientName     = "requests_client.name"
	attrRequestMethod  = "http.request.method"
	attrResponseStatus = "http.response.status_code"
	attrErrorType      = "error.type"
	attrRetryKind      = "requests_client.retry.kind"
	attrRetryIdent     = "requests_client.retry.ident"
)

var (
	telemetryOnce sync.Once

	requestDuration metric.Float64Histogram
	requestsCounter metric.Int64Counter
	retriesCounter  metric.Int64Counter
)

func logInstrumentError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize client metric %s: %v\n", name, err)
	}
}

func ensureTelemetry() {
	telemetryOnce.Do(func() {
		meter := otel.Meter(scopeName)
		var err error

		requestDuration, err = meter.Float64Histogram(
			metricRequestDuration,
			metric.WithDescription("Duration of HTTP client round trips"),
			metric.WithUnit("s"),
		)
		logInstrumentError(metricRequestDuration, err)

		requestsCounter, err = meter.Int64Counter(
			metricRequests,
			metric.WithDescription("Number of HTTP client round trips"),
			metric.WithUnit("{request}"),
		)
		logInstrumentError(metricRequests, err)

		retriesCounter, err = meter.Int64Counter(
			metricRetries,
			metric.WithDescription("Number of retried attempts by kind"),
			metric.WithUnit("{retry}"),
		)
		logInstrumentError(metricRetries, err)
	})
}

func startRequestSpan(ctx context.Context, method, url string) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrRequestMethod, method),
			attribute.String("url.full", url),
		),
	)
}

func endRequestSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int(attrResponseStatus, status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// recordRequestMetrics records one transport round trip. A zero status means
// the request never produced a response.
func recordRequestMetrics(ctx context.Context, name, method string, status int, duration time.Duration, err error) {
	ensureTelemetry()

	attrs := []attribute.KeyValue{
		attribute.String(attrRequestMethod, method),
	}
	if name != "" {
		attrs = append(attrs, attribute.String(attrClientName, name))
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrResponseStatus, status))
	}
	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, "transport"))
	}

	if requestDuration != nil {
		requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if requestsCounter != nil {
		requestsCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// recordRetryMetrics counts one retried attempt on a lane.
func recordRetryMetrics(ctx context.Context, name, kind, ident string) {
	ensureTelemetry()
	if retriesCounter == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrRetryKind, kind),
	}
	if name != "" {
		attrs = append(attrs, attribute.String(attrClientName, name))
	}
	if ident != "" {
		attrs = append(attrs, attribute.String(attrRetryIdent, ident))
	}
	retriesCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
