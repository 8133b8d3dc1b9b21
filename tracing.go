package fetchbridge

import (
	"context"

	"github.com/victoria-riley-barnett/fetchbridge/observability"
)

// TracingMiddleware returns a Middleware that opens an OpenTelemetry
// span around each round trip. The span ends when the response
// resolves; for streamed responses the body is consumed outside it.
func TracingMiddleware(serviceName string) Middleware {
	return func(inner Transport) Transport {
		return &tracingTransport{inner: inner, serviceName: serviceName}
	}
}

type tracingTransport struct {
	inner       Transport
	serviceName string
}

func (t *tracingTransport) Name() string { return t.inner.Name() }

func (t *tracingTransport) RoundTrip(ctx context.Context, req *PreparedRequest) (*Response, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanFetch)
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrServiceName, t.serviceName)
	observability.SetSpanAttribute(ctx, observability.AttrTransport, t.inner.Name())
	observability.SetSpanAttribute(ctx, observability.AttrMethod, req.Method)
	observability.SetSpanAttribute(ctx, observability.AttrURL, req.URL.String())

	resp, err := t.inner.RoundTrip(ctx, req)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return resp, err
	}

	observability.SetSpanAttribute(ctx, observability.AttrStatusCode, resp.Status)
	observability.SetSpanAttribute(ctx, observability.AttrStream, resp.Streaming())
	return resp, nil
}
