package fetchbridge

import (
	"context"
	"time"

	"github.com/victoria-riley-barnett/fetchbridge/logger"
)

// LoggingMiddleware returns a Middleware that logs each round trip.
// Logs: transport name, method, URL, duration, and outcome.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(inner Transport) Transport {
		return &loggingTransport{inner: inner, log: log}
	}
}

type loggingTransport struct {
	inner Transport
	log   *logger.Logger
}

func (l *loggingTransport) Name() string { return l.inner.Name() }

func (l *loggingTransport) RoundTrip(ctx context.Context, req *PreparedRequest) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.RoundTrip(ctx, req)
	duration := time.Since(start)

	fields := logger.Fields(
		logger.FieldTransport, l.inner.Name(),
		logger.FieldMethod, req.Method,
		logger.FieldURL, req.URL.String(),
		logger.FieldDuration, duration.Milliseconds(),
	)

	if err != nil {
		fields[logger.FieldError] = err.Error()
		l.log.Error("request failed", fields)
	} else {
		fields[logger.FieldStatus] = resp.Status
		fields[logger.FieldStream] = resp.Streaming()
		l.log.Debug("request completed", fields)
	}

	return resp, err
}
