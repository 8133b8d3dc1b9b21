// Package sse reads Server-Sent Events from response bodies.
//
// It pairs with streamed fetchbridge responses: events arrive as the
// server emits them, and a broken stream surfaces its terminal error
// from Next instead of ending in a silent EOF.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/victoria-riley-barnett/fetchbridge"
)

// Event is a single server-sent event.
type Event struct {
	// Type is the event type from "event:" lines. Empty for data-only
	// events.
	Type string
	// Data joins the payloads of the event's "data:" lines with newlines.
	Data string
	// ID is the event id from "id:" lines.
	ID string
	// Retry is the reconnection delay from "retry:" lines, zero when
	// absent or unparseable.
	Retry time.Duration
}

// Reader yields events from a stream.
type Reader interface {
	// Next returns the next event. io.EOF means the stream ended
	// cleanly; any other error is the stream's terminal state.
	Next() (*Event, error)
	// Close releases the underlying stream.
	Close() error
}

// maxEventSize bounds a single event line. Model streams routinely
// exceed bufio's default line limit.
const maxEventSize = 1 << 20

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

// NewReader reads events from body. Closing the reader closes body.
func NewReader(body io.ReadCloser) Reader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &reader{scanner: scanner, body: body}
}

// FromResponse reads events from a response body. Buffered and streamed
// responses both work; only streamed ones deliver events incrementally.
func FromResponse(resp *fetchbridge.Response) Reader {
	return NewReader(resp.Reader())
}

// Next returns the next event.
func (r *reader) Next() (*Event, error) {
	var event Event
	var hasData bool

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		// Blank line dispatches the pending event. Without data there is
		// nothing to dispatch and the pending fields are discarded.
		if line == "" {
			if hasData {
				return &event, nil
			}
			event = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
		case "event":
			event.Type = value
		case "id":
			event.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				event.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	// Stream ended; dispatch a final unterminated event if present.
	if hasData {
		return &event, nil
	}
	return nil, io.EOF
}

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

// parseLine splits an SSE field line, stripping the single optional
// space after the colon.
func parseLine(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
