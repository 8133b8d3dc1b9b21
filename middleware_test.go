package fetchbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/victoria-riley-barnett/fetchbridge/logger"
	"github.com/victoria-riley-barnett/fetchbridge/observability"
)

// stubTransport returns a canned response or error and remembers the
// request it saw.
type stubTransport struct {
	name string
	resp *Response
	err  error
	got  *PreparedRequest
}

func (s *stubTransport) Name() string { return s.name }

func (s *stubTransport) RoundTrip(_ context.Context, req *PreparedRequest) (*Response, error) {
	s.got = req
	return s.resp, s.err
}

func preparedGET(t *testing.T) *PreparedRequest {
	t.Helper()
	req := &Request{URL: "http://example.test/v1/items", Method: "GET"}
	prepared, err := req.prepare()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return prepared
}

// --- ChainMiddleware ---

func TestChainMiddleware_Empty(t *testing.T) {
	stub := &stubTransport{name: "stub", resp: NewResponse(200, nil, BufferedBody{Text: "ok"})}
	wrapped := ChainMiddleware()(stub)

	if wrapped.Name() != "stub" {
		t.Fatalf("expected name 'stub', got %q", wrapped.Name())
	}
	resp, err := wrapped.RoundTrip(context.Background(), preparedGET(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("expected status 200, got %d", resp.Status)
	}
}

type orderTransport struct {
	inner Transport
	tag   string
	order *[]string
}

func (o *orderTransport) Name() string { return o.inner.Name() }

func (o *orderTransport) RoundTrip(ctx context.Context, req *PreparedRequest) (*Response, error) {
	*o.order = append(*o.order, o.tag+":before")
	resp, err := o.inner.RoundTrip(ctx, req)
	*o.order = append(*o.order, o.tag+":after")
	return resp, err
}

func TestChainMiddleware_Order(t *testing.T) {
	// First middleware is outermost: it enters first and exits last.
	var order []string
	tag := func(name string) Middleware {
		return func(inner Transport) Transport {
			return &orderTransport{inner: inner, tag: name, order: &order}
		}
	}

	stub := &stubTransport{name: "stub", resp: NewResponse(200, nil, BufferedBody{})}
	wrapped := ChainMiddleware(tag("A"), tag("B"), tag("C"))(stub)

	if _, err := wrapped.RoundTrip(context.Background(), preparedGET(t)); err != nil {
		t.Fatal(err)
	}

	want := []string{"A:before", "B:before", "C:before", "C:after", "B:after", "A:after"}
	if len(order) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

// --- LoggingMiddleware ---

func TestLoggingMiddleware_Success(t *testing.T) {
	old := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(old) })

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "test")

	stub := &stubTransport{name: "buffered", resp: NewResponse(200, nil, BufferedBody{Text: "ok"})}
	wrapped := LoggingMiddleware(log)(stub)

	if wrapped.Name() != "buffered" {
		t.Fatalf("expected name 'buffered', got %q", wrapped.Name())
	}
	resp, err := wrapped.RoundTrip(context.Background(), preparedGET(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("expected status 200, got %d", resp.Status)
	}

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if event["message"] != "request completed" {
		t.Errorf("expected 'request completed', got %v", event["message"])
	}
	if event[logger.FieldTransport] != "buffered" {
		t.Errorf("expected transport=buffered, got %v", event[logger.FieldTransport])
	}
	if event[logger.FieldStatus] != float64(200) {
		t.Errorf("expected status=200, got %v", event[logger.FieldStatus])
	}
	if event[logger.FieldStream] != false {
		t.Errorf("expected stream=false, got %v", event[logger.FieldStream])
	}
}

func TestLoggingMiddleware_Failure(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "test")

	wantErr := NewConnectionError("socket", errors.New("dial refused"))
	stub := &stubTransport{name: "socket", err: wantErr}
	wrapped := LoggingMiddleware(log)(stub)

	_, err := wrapped.RoundTrip(context.Background(), preparedGET(t))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the transport error back, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "request failed") {
		t.Errorf("expected 'request failed' in log output, got %q", out)
	}
	if !strings.Contains(out, "dial refused") {
		t.Errorf("expected error detail in log output, got %q", out)
	}
}

// --- MetricsMiddleware ---

func TestMetricsMiddleware_PassThrough(t *testing.T) {
	metrics, err := observability.NewMetrics(observability.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	stub := &stubTransport{name: "buffered", resp: NewResponse(200, nil, BufferedBody{Text: "ok"})}
	wrapped := MetricsMiddleware(metrics)(stub)

	if wrapped.Name() != "buffered" {
		t.Fatalf("expected name 'buffered', got %q", wrapped.Name())
	}
	resp, err := wrapped.RoundTrip(context.Background(), preparedGET(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := resp.Body.(BufferedBody); !ok {
		t.Fatalf("buffered body should pass through unwrapped, got %T", resp.Body)
	}
}

func TestMetricsMiddleware_CountsStreamedBytes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := observability.NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	const payload = "hello stream"
	body := io.NopCloser(strings.NewReader(payload))
	stub := &stubTransport{name: "socket", resp: NewResponse(200, nil, StreamedBody{Reader: body})}
	wrapped := MetricsMiddleware(metrics)(stub)

	resp, err := wrapped.RoundTrip(context.Background(), preparedGET(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Streaming() {
		t.Fatal("expected a streamed response")
	}

	// Text drains to EOF and then closes; bytes must be recorded once.
	text, err := resp.Text()
	if err != nil {
		t.Fatalf("unexpected error draining body: %v", err)
	}
	if text != payload {
		t.Fatalf("expected %q, got %q", payload, text)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := sumCounter(t, &rm, "fetch.stream.bytes"); got != int64(len(payload)) {
		t.Fatalf("expected %d stream bytes recorded, got %d", len(payload), got)
	}
}

func TestMetricsMiddleware_RecordsErrorKind(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := observability.NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	stub := &stubTransport{name: "socket", err: NewConnectionError("socket", errors.New("refused"))}
	wrapped := MetricsMiddleware(metrics)(stub)

	if _, err := wrapped.RoundTrip(context.Background(), preparedGET(t)); err == nil {
		t.Fatal("expected error")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := sumCounter(t, &rm, "fetch.error.total"); got != 1 {
		t.Fatalf("expected 1 error recorded, got %d", got)
	}
}

// sumCounter totals the data points of a named int64 counter.
func sumCounter(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	var total int64
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T for %s", m.Data, name)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("%s was not collected", name)
	}
	return total
}

// --- TracingMiddleware ---

func installSpanRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	old := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(old)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestTracingMiddleware_RecordsSpan(t *testing.T) {
	exporter := installSpanRecorder(t)

	stub := &stubTransport{name: "buffered", resp: NewResponse(201, nil, BufferedBody{Text: "made"})}
	wrapped := TracingMiddleware("fetchbridge-test")(stub)

	if _, err := wrapped.RoundTrip(context.Background(), preparedGET(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != observability.SpanFetch {
		t.Errorf("expected span %q, got %q", observability.SpanFetch, span.Name)
	}

	attrs := map[string]interface{}{}
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs[observability.AttrTransport] != "buffered" {
		t.Errorf("expected transport attribute 'buffered', got %v", attrs[observability.AttrTransport])
	}
	if attrs[observability.AttrStatusCode] != int64(201) {
		t.Errorf("expected status attribute 201, got %v", attrs[observability.AttrStatusCode])
	}
	if attrs[observability.AttrStream] != false {
		t.Errorf("expected stream attribute false, got %v", attrs[observability.AttrStream])
	}
}

func TestTracingMiddleware_RecordsError(t *testing.T) {
	exporter := installSpanRecorder(t)

	stub := &stubTransport{name: "socket", err: NewStreamError(errors.New("conn reset"))}
	wrapped := TracingMiddleware("fetchbridge-test")(stub)

	if _, err := wrapped.RoundTrip(context.Background(), preparedGET(t)); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if len(spans[0].Events) == 0 {
		t.Fatal("expected an error event on the span")
	}
	if spans[0].Events[0].Name != "exception" {
		t.Errorf("expected exception event, got %q", spans[0].Events[0].Name)
	}
}

// --- Composition ---

func TestChainMiddleware_AllMiddlewares(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "test")
	metrics, err := observability.NewMetrics(observability.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	stub := &stubTransport{name: "buffered", resp: NewResponse(200, nil, BufferedBody{Text: "ok"})}
	wrapped := ChainMiddleware(
		LoggingMiddleware(log),
		MetricsMiddleware(metrics),
		TracingMiddleware("fetchbridge-test"),
	)(stub)

	if wrapped.Name() != "buffered" {
		t.Fatalf("expected name 'buffered', got %q", wrapped.Name())
	}
	resp, err := wrapped.RoundTrip(context.Background(), preparedGET(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := resp.Text()
	if err != nil || text != "ok" {
		t.Fatalf("expected body 'ok', got %q, err %v", text, err)
	}
}
