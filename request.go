package fetchbridge

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"strings"
)

// Request describes an outbound HTTP request. Headers and Body accept the
// heterogeneous shapes SDKs hand over; Do normalizes them before dispatch.
type Request struct {
	// URL is the absolute target URL (http or https).
	URL string
	// Method is the HTTP method. Defaults to GET.
	Method string
	// Headers accepts map[string]string, http.Header, map[string][]string,
	// an ordered [][2]string pair list, or any string-keyed map. Multi-valued
	// inputs are folded by repeated insertion (the last value wins).
	Headers any
	// Body accepts nil, string, []byte, json.RawMessage, io.Reader, or any
	// value that will be JSON-encoded (falling back to its string form when
	// it cannot be marshaled).
	Body any
	// Stream overrides streaming detection. When nil, the request streams iff
	// its body is a JSON object whose top-level "stream" field is true.
	Stream *bool
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
}

// PreparedRequest is the canonical wire-ready form of a Request: one header
// map with canonical MIME keys and a fully materialized body.
type PreparedRequest struct {
	URL     *url.URL
	Method  string
	Headers map[string]string
	Body    []byte
}

// prepare normalizes the request. Header collection is total: inputs that
// match none of the accepted shapes contribute nothing. Only an unreadable
// io.Reader body or an unusable URL produce errors.
func (r *Request) prepare() (*PreparedRequest, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("parse url %q: %v", r.URL, err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, NewInvalidRequestError(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, NewInvalidRequestError("url has no host")
	}

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}

	p := &PreparedRequest{
		URL:     u,
		Method:  method,
		Headers: make(map[string]string),
	}
	collectHeaders(p, r.Headers)

	body, contentType, err := encodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	p.Body = body
	if len(body) > 0 && contentType != "" && p.Header("Content-Type") == "" {
		p.setHeader("Content-Type", contentType)
	}

	return p, nil
}

// setHeader stores a header under its canonical MIME key. Any casing of
// Content-Length is dropped: the winning transport computes the length
// itself, and a stale caller-supplied value corrupts the request.
func (p *PreparedRequest) setHeader(key, value string) {
	canonical := textproto.CanonicalMIMEHeaderKey(key)
	if canonical == "Content-Length" {
		return
	}
	p.Headers[canonical] = value
}

// Header returns the value for a header name, matching case-insensitively.
func (p *PreparedRequest) Header(key string) string {
	return p.Headers[textproto.CanonicalMIMEHeaderKey(key)]
}

// collectHeaders folds the accepted header shapes into the canonical map.
func collectHeaders(p *PreparedRequest, headers any) {
	switch h := headers.(type) {
	case nil:
	case map[string]string:
		for k, v := range h {
			p.setHeader(k, v)
		}
	case http.Header:
		foldMulti(p, h)
	case map[string][]string:
		foldMulti(p, h)
	case [][2]string:
		for _, kv := range h {
			p.setHeader(kv[0], kv[1])
		}
	case map[string]any:
		for k, v := range h {
			p.setHeader(k, stringifyHeaderValue(v))
		}
	default:
		// Generic key-value path: any other string-keyed map still
		// contributes; everything else contributes nothing.
		rv := reflect.ValueOf(headers)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return
		}
		iter := rv.MapRange()
		for iter.Next() {
			p.setHeader(iter.Key().String(), stringifyHeaderValue(iter.Value().Interface()))
		}
	}
}

func foldMulti(p *PreparedRequest, h map[string][]string) {
	for k, vs := range h {
		for _, v := range vs {
			p.setHeader(k, v)
		}
	}
}

func stringifyHeaderValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// encodeBody materializes a body value into bytes plus a content-type hint
// applied only when the caller set none.
func encodeBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(v), "text/plain", nil
	case json.RawMessage:
		return v, "application/json", nil
	case []byte:
		return v, "", nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, "", NewInvalidRequestError(fmt.Sprintf("read body: %v", err))
		}
		return data, "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			// Last resort: coerce to the value's string form.
			return []byte(fmt.Sprint(v)), "text/plain", nil
		}
		return data, "application/json", nil
	}
}
