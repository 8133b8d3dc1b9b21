package fetchbridge

import (
	"encoding/json"
	"fmt"
	"io"
	"net/textproto"
	"strings"
)

// Headers holds response headers under canonical MIME keys.
type Headers map[string]string

// Get returns the value for the given header key. Lookup is
// case-insensitive; missing keys return the empty string.
func (h Headers) Get(key string) string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

// ResponseBody is the payload of a Response. It is either a
// BufferedBody holding the complete text or a StreamedBody wrapping a
// lazy reader. The set of implementations is closed.
type ResponseBody interface {
	isResponseBody()
}

// BufferedBody is a response payload that has been read in full.
type BufferedBody struct {
	// Text is the complete body as text.
	Text string
}

func (BufferedBody) isResponseBody() {}

// StreamedBody is a response payload delivered incrementally. Reading
// from Reader yields body bytes in network order; a transport error
// that occurs mid-stream surfaces as the reader's error.
type StreamedBody struct {
	// Reader streams the body. The caller owns it and must close it.
	Reader io.ReadCloser
}

func (StreamedBody) isResponseBody() {}

// Response is the outcome of a dispatched request. Both transports
// produce it through NewResponse, so callers cannot tell from the
// envelope which path served them.
type Response struct {
	// Status is the HTTP status code.
	Status int
	// StatusText is the reason phrase for Status.
	StatusText string
	// Headers are the response headers, folded to single values.
	Headers Headers
	// Body is the payload, buffered or streamed.
	Body ResponseBody
}

// NewResponse assembles a Response from a status code, raw headers and
// a body. Multi-valued headers fold to their last value and the reason
// phrase is derived from the status code alone.
func NewResponse(status int, header map[string][]string, body ResponseBody) *Response {
	headers := make(Headers, len(header))
	for key, values := range header {
		for _, value := range values {
			headers[textproto.CanonicalMIMEHeaderKey(key)] = value
		}
	}
	if body == nil {
		body = BufferedBody{}
	}
	return &Response{
		Status:     status,
		StatusText: StatusText(status),
		Headers:    headers,
		Body:       body,
	}
}

// Streaming reports whether the body is delivered incrementally.
func (r *Response) Streaming() bool {
	_, ok := r.Body.(StreamedBody)
	return ok
}

// Reader returns the body as a reader. Buffered bodies yield a fresh
// reader over the stored text on every call; streamed bodies return
// the underlying stream, which can only be consumed once.
func (r *Response) Reader() io.ReadCloser {
	switch b := r.Body.(type) {
	case StreamedBody:
		return b.Reader
	case BufferedBody:
		return io.NopCloser(strings.NewReader(b.Text))
	default:
		return io.NopCloser(strings.NewReader(""))
	}
}

// Text returns the complete body as text. For streamed bodies it
// drains the stream; an error encountered mid-stream is returned
// alongside whatever bytes were read before it.
func (r *Response) Text() (string, error) {
	switch b := r.Body.(type) {
	case StreamedBody:
		data, err := io.ReadAll(b.Reader)
		if cerr := b.Reader.Close(); err == nil {
			err = cerr
		}
		return string(data), err
	case BufferedBody:
		return b.Text, nil
	default:
		return "", nil
	}
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	text, err := r.Text()
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("fetchbridge: decode response: %w", err)
	}
	return nil
}

// Close releases the body. It is a no-op for buffered bodies and
// required for streamed bodies that are not drained.
func (r *Response) Close() error {
	if b, ok := r.Body.(StreamedBody); ok {
		return b.Reader.Close()
	}
	return nil
}
