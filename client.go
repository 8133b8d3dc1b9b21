package fetchbridge

import (
	"context"

	"github.com/google/uuid"

	"github.com/victoria-riley-barnett/fetchbridge/logger"
	"github.com/victoria-riley-barnett/fetchbridge/observability"
	"github.com/victoria-riley-barnett/fetchbridge/resilience"
)

const headerRequestID = "X-Request-Id"

// Client dispatches requests over two transports: a buffered path backed
// by a Host primitive and a raw socket path for streamed responses.
// Requests that ask to stream take the socket path when the capability
// allows it, and fall back to the buffered path when the socket path
// fails before a response resolves.
type Client struct {
	buffered   Transport
	socket     Transport
	capability Capability
	headers    map[string]string
	auth       *AuthConfig
	breaker    *resilience.Breaker
	limiter    *resilience.Limiter
	metrics    *observability.Metrics
	log        *logger.Logger
}

// Option customizes a Client beyond its Config.
type Option func(*clientOptions)

type clientOptions struct {
	log         *logger.Logger
	host        Host
	metrics     *observability.Metrics
	capability  Capability
	service     string
	middlewares []Middleware
}

// WithLogger sets the client logger. Defaults to the registered
// "client" logger.
func WithLogger(log *logger.Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

// WithHost sets the buffered transport's host primitive. Defaults to a
// net/http backed host honoring the configured timeout and TLS.
func WithHost(host Host) Option {
	return func(o *clientOptions) { o.host = host }
}

// WithMetrics instruments both transports and the fallback counter.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *clientOptions) { o.metrics = metrics }
}

// WithTracing opens a span around every round trip, attributed to the
// given service name.
func WithTracing(serviceName string) Option {
	return func(o *clientOptions) { o.service = serviceName }
}

// WithCapability overrides the streaming capability derived from the
// configuration.
func WithCapability(capability Capability) Option {
	return func(o *clientOptions) { o.capability = capability }
}

// WithMiddleware wraps both transports with additional middleware,
// applied inside logging, metrics, and tracing.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(o *clientOptions) { o.middlewares = append(o.middlewares, middlewares...) }
}

// New builds a Client from cfg. The TLS configuration is built once and
// shared by both transports.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("client")
	}
	if o.capability == nil {
		o.capability = cfg.Streaming.Capability()
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}

	host := o.host
	if host == nil {
		host = NewNetHTTPHost(tlsCfg, cfg.Timeout)
	}

	middlewares := []Middleware{LoggingMiddleware(o.log)}
	if o.metrics != nil {
		middlewares = append(middlewares, MetricsMiddleware(o.metrics))
	}
	if o.service != "" {
		middlewares = append(middlewares, TracingMiddleware(o.service))
	}
	middlewares = append(middlewares, o.middlewares...)
	chain := ChainMiddleware(middlewares...)

	var breaker *resilience.Breaker
	if cfg.Breaker != nil {
		bc := *cfg.Breaker
		if bc.Name == "" {
			bc.Name = "socket"
		}
		if bc.OnStateChange == nil {
			log := o.log
			bc.OnStateChange = func(name string, from, to resilience.State) {
				log.Warn("circuit breaker state changed", logger.Fields(
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				))
			}
		}
		breaker = resilience.NewBreaker(bc)
	}

	var limiter *resilience.Limiter
	if cfg.RateLimit != nil {
		limiter = resilience.NewLimiter(*cfg.RateLimit)
	}

	return &Client{
		buffered: chain(NewBufferedTransport(host)),
		socket: chain(NewSocketTransport(SocketOptions{
			TLS:         tlsCfg,
			DialTimeout: cfg.Streaming.DialTimeout,
			Logger:      o.log.WithComponent("socket"),
		})),
		capability: o.capability,
		headers:    cfg.Headers,
		auth:       cfg.Auth,
		breaker:    breaker,
		limiter:    limiter,
		metrics:    o.metrics,
		log:        o.log,
	}, nil
}

// Do normalizes req, picks a transport, and returns the adapted
// response. Any HTTP status is a response, not an error. When a request
// asks to stream and the socket transport fails, the buffered transport
// serves the request instead and the result is indistinguishable from a
// buffered-only round trip; cancellation and request defects are
// returned directly without a second attempt.
//
// A configured rate limit paces the request before dispatch, and a
// configured breaker skips the socket attempt while its circuit is
// open.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewInvalidRequestError("nil request")
	}

	prepared, err := req.prepare()
	if err != nil {
		return nil, err
	}
	c.finalize(prepared, req.Auth)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewCanceledError("", err)
		}
	}

	if resolveStreamIntent(req.Stream, prepared.Body) {
		switch {
		case !c.capability.StreamingEnabled():
			c.log.Debug("streaming unavailable, serving buffered", logger.Fields(
				logger.FieldURL, prepared.URL.String(),
			))
		case c.breaker != nil && !c.breaker.Allow():
			c.log.Debug("socket circuit open, serving buffered", logger.Fields(
				logger.FieldURL, prepared.URL.String(),
			))
			if c.metrics != nil {
				c.metrics.RecordFallback(ctx, "circuit_open")
			}
		default:
			resp, err := c.socket.RoundTrip(ctx, prepared)
			if err == nil {
				if c.breaker != nil {
					c.breaker.RecordSuccess()
				}
				return resp, nil
			}
			if ctx.Err() != nil || IsCanceled(err) || IsInvalidRequest(err) {
				if c.breaker != nil {
					c.breaker.ReleaseProbe()
				}
				return nil, err
			}
			// Only operational failures count against the breaker.
			if c.breaker != nil {
				c.breaker.RecordFailure()
			}
			c.log.Warn("socket transport failed, falling back to buffered", logger.Fields(
				logger.FieldMethod, prepared.Method,
				logger.FieldURL, prepared.URL.String(),
				logger.FieldError, err.Error(),
			))
			if c.metrics != nil {
				c.metrics.RecordFallback(ctx, errorKind(err))
			}
		}
	}

	return c.buffered.RoundTrip(ctx, prepared)
}

// finalize layers client-level defaults onto a prepared request:
// configured headers where the request has none, auth, and a request id.
func (c *Client) finalize(prepared *PreparedRequest, auth *AuthConfig) {
	for name, value := range c.headers {
		if prepared.Header(name) == "" {
			prepared.setHeader(name, value)
		}
	}
	if auth == nil {
		auth = c.auth
	}
	auth.apply(prepared)
	if prepared.Header(headerRequestID) == "" {
		prepared.setHeader(headerRequestID, uuid.NewString())
	}
}
