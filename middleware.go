package fetchbridge

// Middleware transforms a Transport by wrapping it. The returned
// transport typically delegates to the original while adding
// cross-cutting behavior (logging, metrics, tracing, etc.).
type Middleware func(Transport) Transport

// ChainMiddleware composes multiple middlewares into one. Middlewares
// are applied in order: the first middleware is outermost (executes
// first on the way in, last on the way out).
//
// ChainMiddleware(a, b, c)(transport) is equivalent to a(b(c(transport))).
func ChainMiddleware(middlewares ...Middleware) Middleware {
	return func(inner Transport) Transport {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}
