package fetchbridge

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/victoria-riley-barnett/fetchbridge/observability"
)

// MetricsMiddleware returns a Middleware that records round trips on
// the fetchbridge observability instruments. Streamed bodies are
// wrapped so delivered bytes are counted when the stream ends.
func MetricsMiddleware(metrics *observability.Metrics) Middleware {
	return func(inner Transport) Transport {
		return &metricsTransport{inner: inner, metrics: metrics}
	}
}

type metricsTransport struct {
	inner   Transport
	metrics *observability.Metrics
}

func (m *metricsTransport) Name() string { return m.inner.Name() }

func (m *metricsTransport) RoundTrip(ctx context.Context, req *PreparedRequest) (*Response, error) {
	m.metrics.RecordRequestStart(ctx)
	start := time.Now()
	resp, err := m.inner.RoundTrip(ctx, req)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.Status
	}
	m.metrics.RecordRequestEnd(ctx, m.inner.Name(), req.Method, status, duration)

	if err != nil {
		m.metrics.RecordError(ctx, errorKind(err), m.inner.Name())
		return resp, err
	}

	if body, ok := resp.Body.(StreamedBody); ok {
		resp.Body = StreamedBody{Reader: &countingBody{
			inner:     body.Reader,
			ctx:       ctx,
			metrics:   m.metrics,
			transport: m.inner.Name(),
		}}
	}
	return resp, nil
}

// errorKind maps an error to its metric label.
func errorKind(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.String()
	}
	return "unknown"
}

// countingBody counts delivered bytes and records them once, when the
// stream reaches a terminal state or is closed.
type countingBody struct {
	inner     io.ReadCloser
	ctx       context.Context
	metrics   *observability.Metrics
	transport string
	n         int64
}

func (c *countingBody) Read(p []byte) (int, error) {
	n, err := c.inner.Read(p)
	c.n += int64(n)
	if err != nil {
		c.flush()
	}
	return n, err
}

func (c *countingBody) Close() error {
	err := c.inner.Close()
	c.flush()
	return err
}

// flush records the accumulated count and resets it, so a Close after
// EOF does not double count.
func (c *countingBody) flush() {
	c.metrics.RecordStreamBytes(c.ctx, c.transport, c.n)
	c.n = 0
}
