package fetchbridge

import "context"

// Transport sends a prepared request and adapts the result to a
// Response. A non-nil error means the transport could not produce a
// response at all; HTTP error statuses are returned as ordinary
// responses, never as errors.
type Transport interface {
	// Name identifies the transport in logs and metrics.
	Name() string

	// RoundTrip executes the request. The returned response owns any
	// resources it references; for streamed bodies the caller must
	// close the body reader.
	RoundTrip(ctx context.Context, req *PreparedRequest) (*Response, error)
}
