package fetchbridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HostRequest is the flattened request handed to a Host: resolved URL,
// canonical single-valued headers, encoded body.
type HostRequest struct {
	// URL is the absolute request URL.
	URL string
	// Method is the uppercase HTTP method.
	Method string
	// Headers are the canonical request headers.
	Headers map[string]string
	// Body is the encoded request body, nil when absent.
	Body []byte
}

// HostResponse is the result a Host hands back. The body arrives either
// as raw text or as an already-decoded JSON document; Text wins when
// both are set.
type HostResponse struct {
	// Status is the HTTP status code.
	Status int
	// Headers are the raw response headers.
	Headers map[string][]string
	// Text is the body as raw text.
	Text string
	// JSON is the body as a decoded document, used when Text is empty.
	JSON any
}

// bodyText folds the two body forms into text. A document that cannot
// be re-encoded is a host contract violation, not a caller mistake.
func (r *HostResponse) bodyText() (string, error) {
	if r.Text != "" {
		return r.Text, nil
	}
	if r.JSON == nil {
		return "", nil
	}
	data, err := json.Marshal(r.JSON)
	if err != nil {
		return "", NewProtocolError("buffered", fmt.Sprintf("encode host document: %v", err))
	}
	return string(data), nil
}

// Host is the privileged fetch primitive behind the buffered transport.
// Implementations report transport failures through the error return
// and must deliver HTTP error statuses as ordinary responses.
type Host interface {
	Fetch(ctx context.Context, req *HostRequest) (*HostResponse, error)
}

// HostFunc adapts a function to the Host interface.
type HostFunc func(ctx context.Context, req *HostRequest) (*HostResponse, error)

// Fetch calls f.
func (f HostFunc) Fetch(ctx context.Context, req *HostRequest) (*HostResponse, error) {
	return f(ctx, req)
}

// BufferedTransport serves requests through a Host and returns the
// complete body in one piece. It is the default path and the target of
// streaming fallback.
type BufferedTransport struct {
	host Host
}

// NewBufferedTransport creates a buffered transport on top of host.
func NewBufferedTransport(host Host) *BufferedTransport {
	return &BufferedTransport{host: host}
}

// Name implements Transport.
func (t *BufferedTransport) Name() string { return "buffered" }

// RoundTrip fetches through the host and adapts the result. Any status
// code produces a response; only a failed fetch is an error.
func (t *BufferedTransport) RoundTrip(ctx context.Context, req *PreparedRequest) (*Response, error) {
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[k] = v
	}

	hostResp, err := t.host.Fetch(ctx, &HostRequest{
		URL:     req.URL.String(),
		Method:  req.Method,
		Headers: headers,
		Body:    req.Body,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewCanceledError(t.Name(), err)
		}
		return nil, NewConnectionError(t.Name(), err)
	}

	text, err := hostResp.bodyText()
	if err != nil {
		return nil, err
	}
	return NewResponse(hostResp.Status, hostResp.Headers, BufferedBody{Text: text}), nil
}

// NetHTTPHost is the default Host, backed by net/http. Statuses outside
// the 2xx range come back as normal responses because http.Client does
// not treat them as failures.
type NetHTTPHost struct {
	client *http.Client
}

// NewNetHTTPHost creates a Host over a dedicated http.Client. A nil
// tlsCfg keeps the default transport verification; a zero timeout
// leaves requests bounded only by their context.
func NewNetHTTPHost(tlsCfg *tls.Config, timeout time.Duration) *NetHTTPHost {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}
	return &NetHTTPHost{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Fetch implements Host.
func (h *NetHTTPHost) Fetch(ctx context.Context, req *HostRequest) (*HostResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &HostResponse{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Text:    string(data),
	}, nil
}

var (
	_ Transport = (*BufferedTransport)(nil)
	_ Host      = (*NetHTTPHost)(nil)
	_ Host      = (HostFunc)(nil)
)
