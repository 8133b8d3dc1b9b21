package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/victoria-riley-barnett/fetchbridge/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) *MeterConfig {
	return &MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the metric instruments of the fetch client.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	fallbackTotal   metric.Int64Counter
	streamBytes     metric.Int64Counter
	errorTotal      metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("fetch.request.total",
		metric.WithDescription("Total number of dispatched requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.request.total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("fetch.request.duration",
		metric.WithDescription("Time from dispatch to response resolution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.request.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("fetch.request.active",
		metric.WithDescription("Number of requests currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.request.active gauge: %w", err)
	}

	fallbackTotal, err := meter.Int64Counter("fetch.fallback.total",
		metric.WithDescription("Streaming attempts that fell back to the buffered transport"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.fallback.total counter: %w", err)
	}

	streamBytes, err := meter.Int64Counter("fetch.stream.bytes",
		metric.WithDescription("Body bytes delivered through streamed responses"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.stream.bytes counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("fetch.error.total",
		metric.WithDescription("Total errors by type and transport"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.error.total counter: %w", err)
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
		fallbackTotal:   fallbackTotal,
		streamBytes:     streamBytes,
		errorTotal:      errorTotal,
	}, nil
}

// RecordRequestStart increments the active request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements active requests and records the completed
// request with its transport, method and status code.
func (m *Metrics) RecordRequestEnd(ctx context.Context, transport, method string, status int, duration time.Duration) {
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("method", method),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("method", method),
	))
}

// RecordFallback records a streaming attempt served buffered instead.
func (m *Metrics) RecordFallback(ctx context.Context, reason string) {
	m.fallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordStreamBytes adds n body bytes delivered by a streamed response.
func (m *Metrics) RecordStreamBytes(ctx context.Context, transport string, n int64) {
	if n <= 0 {
		return
	}
	m.streamBytes.Add(ctx, n, metric.WithAttributes(
		attribute.String("transport", transport),
	))
}

// RecordError records an error by type and transport.
func (m *Metrics) RecordError(ctx context.Context, errType, transport string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("transport", transport),
	))
}
