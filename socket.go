package fetchbridge

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/victoria-riley-barnett/fetchbridge/bytestream"
	"github.com/victoria-riley-barnett/fetchbridge/logger"
	"github.com/victoria-riley-barnett/fetchbridge/version"
)

// SocketOptions configures a SocketTransport.
type SocketOptions struct {
	// TLS is used for https requests. Nil means platform default
	// verification.
	TLS *tls.Config
	// DialTimeout bounds connection establishment. Zero leaves dialing
	// bounded only by the request context.
	DialTimeout time.Duration
	// Logger records the connection lifecycle at debug level.
	Logger *logger.Logger
}

// SocketTransport speaks HTTP/1.1 over a raw TCP or TLS connection and
// exposes the response body as a lazy byte stream. The response
// resolves as soon as the status line and headers arrive; body bytes
// are pumped into the stream in network order while the caller reads.
//
// Each request uses a dedicated connection and asks the server to
// close it afterwards, so requests share no state.
type SocketTransport struct {
	tlsConfig   *tls.Config
	dialTimeout time.Duration
	log         *logger.Logger
}

// NewSocketTransport creates a streaming transport.
func NewSocketTransport(opts SocketOptions) *SocketTransport {
	log := opts.Logger
	if log == nil {
		log = logger.Get("socket")
	}
	return &SocketTransport{
		tlsConfig:   opts.TLS,
		dialTimeout: opts.DialTimeout,
		log:         log,
	}
}

// Name implements Transport.
func (t *SocketTransport) Name() string { return "socket" }

// RoundTrip dials, writes the request and reads the response head.
// It returns once headers are in; the body streams afterwards. Errors
// up to that point are returned directly, errors after it reach only
// the body reader.
func (t *SocketTransport) RoundTrip(ctx context.Context, req *PreparedRequest) (*Response, error) {
	if err := validateHeaders(req.Headers); err != nil {
		return nil, err
	}

	t.log.Debug("connecting", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldURL, req.URL.String(),
	))

	conn, err := t.dial(ctx, req.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewCanceledError(t.Name(), err)
		}
		return nil, NewConnectionError(t.Name(), err)
	}

	if err := writeRequest(conn, req); err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, NewCanceledError(t.Name(), err)
		}
		return nil, err
	}

	br := bufio.NewReader(conn)
	status, header, err := readResponseHeader(br)
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, NewCanceledError(t.Name(), err)
		}
		return nil, err
	}

	t.log.Debug("headers received", logger.Fields(
		logger.FieldStatus, status,
		logger.FieldURL, req.URL.String(),
	))

	body, err := responseBodyReader(br, req.Method, status, header)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	pipe := bytestream.New()
	stream := &socketBody{pipe: pipe, conn: conn}

	if body == nil {
		pipe.Close()
		_ = conn.Close()
		return NewResponse(status, header, StreamedBody{Reader: stream}), nil
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	go t.pump(ctx, pipe, body, conn, done)

	return NewResponse(status, header, StreamedBody{Reader: stream}), nil
}

// pump copies body bytes into the pipe until the framing ends or the
// connection fails. The terminal state carries the distinction: EOF
// for a complete body, a stream error otherwise.
func (t *SocketTransport) pump(ctx context.Context, pipe *bytestream.Pipe, body io.Reader, conn net.Conn, done chan struct{}) {
	defer close(done)
	defer func() { _ = conn.Close() }()

	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			pipe.Push(buf[:n])
		}
		if err == nil {
			continue
		}
		switch {
		case err == io.EOF:
			pipe.Close()
			t.log.Debug("stream closed", logger.Fields(logger.FieldTransport, t.Name()))
		case ctx.Err() != nil:
			pipe.CloseWithError(NewCanceledError(t.Name(), ctx.Err()))
		default:
			pipe.CloseWithError(NewStreamError(err))
			t.log.Debug("stream failed", logger.Fields(logger.FieldError, err.Error()))
		}
		return
	}
}

// dial opens the TCP connection and, for https, completes the TLS
// handshake.
func (t *SocketTransport) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: t.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", dialAddress(u))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" {
		return conn, nil
	}

	cfg := t.tlsConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = u.Hostname()
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// dialAddress derives the dial target from the URL. An explicit port
// wins; otherwise the scheme picks 80 or 443. Hostname strips the
// brackets from an IPv6 literal and JoinHostPort restores them, so the
// address carries exactly one set.
func dialAddress(u *url.URL) string {
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// validateHeaders rejects header names or values that cannot appear on
// the wire. Prepared headers are already canonical, so this only
// catches values with control bytes and the like.
func validateHeaders(headers map[string]string) error {
	for k, v := range headers {
		if !httpguts.ValidHeaderFieldName(k) {
			return NewInvalidRequestError(fmt.Sprintf("invalid header name %q", k))
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return NewInvalidRequestError(fmt.Sprintf("invalid value for header %q", k))
		}
	}
	return nil
}

// writeRequest serializes the request head and body as HTTP/1.1. The
// transport owns Host, Connection and Content-Length; Connection is
// always "close" so the response may be close-delimited.
func writeRequest(w io.Writer, req *PreparedRequest) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(req.Method)
	bw.WriteByte(' ')
	bw.WriteString(req.URL.RequestURI())
	bw.WriteString(" HTTP/1.1\r\n")

	bw.WriteString("Host: ")
	bw.WriteString(req.URL.Host)
	bw.WriteString("\r\nConnection: close\r\n")
	if len(req.Body) > 0 {
		bw.WriteString("Content-Length: ")
		bw.WriteString(strconv.Itoa(len(req.Body)))
		bw.WriteString("\r\n")
	}
	if req.Header("User-Agent") == "" {
		bw.WriteString("User-Agent: ")
		bw.WriteString(version.UserAgent())
		bw.WriteString("\r\n")
	}

	for k, v := range req.Headers {
		if k == "Host" || k == "Connection" {
			continue
		}
		bw.WriteString(k)
		bw.WriteString(": ")
		bw.WriteString(v)
		bw.WriteString("\r\n")
	}
	bw.WriteString("\r\n")

	if len(req.Body) > 0 {
		bw.Write(req.Body)
	}

	if err := bw.Flush(); err != nil {
		return NewConnectionError("socket", err)
	}
	return nil
}

// readResponseHeader parses the status line and MIME headers. IO
// failures are connection errors; unparseable input is a protocol
// error. Either way the caller still has no response, so both fall
// back.
func readResponseHeader(br *bufio.Reader) (int, map[string][]string, error) {
	tp := textproto.NewReader(br)

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, NewConnectionError("socket", err)
	}

	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return 0, nil, NewProtocolError("socket", fmt.Sprintf("malformed status line %q", line))
	}
	codeText, _, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if len(codeText) != 3 {
		return 0, nil, NewProtocolError("socket", fmt.Sprintf("malformed status code %q", codeText))
	}
	status, err := strconv.Atoi(codeText)
	if err != nil || status < 100 {
		return 0, nil, NewProtocolError("socket", fmt.Sprintf("malformed status code %q", codeText))
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		var protoErr *textproto.ProtocolError
		if errors.As(err, &protoErr) {
			return 0, nil, NewProtocolError("socket", err.Error())
		}
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, NewConnectionError("socket", err)
	}

	return status, mimeHeader, nil
}

// responseBodyReader picks the body framing: none for bodyless
// responses, chunked decoding, a fixed Content-Length window, or
// close-delimited read-to-EOF.
func responseBodyReader(br *bufio.Reader, method string, status int, header map[string][]string) (io.Reader, error) {
	if method == http.MethodHead || status == http.StatusNoContent || status == http.StatusNotModified || status < 200 {
		return nil, nil
	}

	if te := lastValue(header, "Transfer-Encoding"); strings.EqualFold(strings.TrimSpace(te), "chunked") {
		return httputil.NewChunkedReader(br), nil
	}

	lengths := header["Content-Length"]
	if len(lengths) > 1 {
		first := textproto.TrimString(lengths[0])
		for _, l := range lengths[1:] {
			if textproto.TrimString(l) != first {
				return nil, NewProtocolError("socket", "conflicting Content-Length headers")
			}
		}
	}
	if len(lengths) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(lengths[0]), 10, 63)
		if err != nil {
			return nil, NewProtocolError("socket", fmt.Sprintf("invalid Content-Length %q", lengths[0]))
		}
		if n == 0 {
			return nil, nil
		}
		return &lengthReader{r: br, n: int64(n)}, nil
	}

	return br, nil
}

// lengthReader reads exactly n bytes and then reports EOF. A
// connection that closes early yields io.ErrUnexpectedEOF, so a
// truncated body is never mistaken for a complete one.
type lengthReader struct {
	r io.Reader
	n int64
}

func (l *lengthReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if err == io.EOF && l.n > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// lastValue returns the last value for a canonical header key.
func lastValue(header map[string][]string, key string) string {
	values := header[key]
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

// socketBody is the reader handed to the caller. Close abandons the
// stream: pending bytes are dropped and the connection is torn down so
// the pump exits.
type socketBody struct {
	pipe *bytestream.Pipe
	conn net.Conn
	once sync.Once
}

// Read implements io.Reader.
func (b *socketBody) Read(p []byte) (int, error) {
	return b.pipe.Read(p)
}

// Close implements io.Closer. It is safe to call more than once.
func (b *socketBody) Close() error {
	b.once.Do(func() {
		b.pipe.CloseRead(nil)
		_ = b.conn.Close()
	})
	return nil
}

var _ Transport = (*SocketTransport)(nil)
