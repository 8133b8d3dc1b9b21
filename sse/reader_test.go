package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/victoria-riley-barnett/fetchbridge"
)

// mockBody wraps a string reader as an io.ReadCloser and records Close.
type mockBody struct {
	*strings.Reader
	closed bool
}

func (m *mockBody) Close() error {
	m.closed = true
	return nil
}

func newMockBody(s string) *mockBody {
	return &mockBody{Reader: strings.NewReader(s)}
}

func TestReader_SingleEvent(t *testing.T) {
	r := NewReader(newMockBody("data: hello world\n\n"))
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "hello world" {
		t.Errorf("got data %q, want %q", ev.Data, "hello world")
	}
}

func TestReader_MultipleEvents(t *testing.T) {
	r := NewReader(newMockBody("data: first\n\ndata: second\n\n"))
	defer r.Close()

	ev1, err := r.Next()
	if err != nil || ev1.Data != "first" {
		t.Fatalf("first event = %+v, err %v", ev1, err)
	}
	ev2, err := r.Next()
	if err != nil || ev2.Data != "second" {
		t.Fatalf("second event = %+v, err %v", ev2, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_EventTypeIDAndRetry(t *testing.T) {
	r := NewReader(newMockBody("event: delta\nid: 42\nretry: 1500\ndata: hello\n\n"))
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Type != "delta" {
		t.Errorf("got type %q, want %q", ev.Type, "delta")
	}
	if ev.ID != "42" {
		t.Errorf("got id %q, want %q", ev.ID, "42")
	}
	if ev.Retry != 1500*time.Millisecond {
		t.Errorf("got retry %v, want 1.5s", ev.Retry)
	}
}

func TestReader_MultilineData(t *testing.T) {
	r := NewReader(newMockBody("data: line one\ndata: line two\n\n"))
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "line one\nline two" {
		t.Errorf("got data %q", ev.Data)
	}
}

func TestReader_SkipsComments(t *testing.T) {
	r := NewReader(newMockBody(": keepalive\ndata: real\n\n"))
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "real" {
		t.Errorf("got data %q, want %q", ev.Data, "real")
	}
}

func TestReader_CRLFLines(t *testing.T) {
	r := NewReader(newMockBody("data: windows\r\n\r\n"))
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "windows" {
		t.Errorf("got data %q, want %q", ev.Data, "windows")
	}
}

func TestReader_FinalEventWithoutBlankLine(t *testing.T) {
	r := NewReader(newMockBody("data: tail"))
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "tail" {
		t.Errorf("got data %q, want %q", ev.Data, "tail")
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_NoSpaceAfterColon(t *testing.T) {
	r := NewReader(newMockBody("data:compact\n\n"))
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "compact" {
		t.Errorf("got data %q, want %q", ev.Data, "compact")
	}
}

func TestReader_DataLessEventDoesNotDispatch(t *testing.T) {
	r := NewReader(newMockBody("event: ping\n\ndata: real\n\n"))
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "real" {
		t.Errorf("expected the data-less event to be skipped, got %+v", ev)
	}
	if ev.Type != "" {
		t.Errorf("expected the discarded event type not to leak, got %q", ev.Type)
	}
}

// brokenBody yields some data and then a terminal error.
type brokenBody struct {
	io.Reader
}

func (brokenBody) Close() error { return nil }

func TestReader_StreamErrorSurfacesFromNext(t *testing.T) {
	streamErr := errors.New("stream torn down")
	body := brokenBody{io.MultiReader(
		strings.NewReader("data: partial\n\n"),
		&failingReader{err: streamErr},
	)}
	r := NewReader(body)
	defer r.Close()

	ev, err := r.Next()
	if err != nil || ev.Data != "partial" {
		t.Fatalf("expected the delivered event first, got %+v, err %v", ev, err)
	}
	if _, err := r.Next(); !errors.Is(err, streamErr) {
		t.Fatalf("expected the terminal stream error, got %v", err)
	}
}

type failingReader struct {
	err error
}

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReader_CloseReleasesBody(t *testing.T) {
	body := newMockBody("data: x\n\n")
	r := NewReader(body)

	if err := r.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body.closed {
		t.Error("expected the body to be closed")
	}
}

func TestFromResponse(t *testing.T) {
	resp := fetchbridge.NewResponse(200, nil, fetchbridge.BufferedBody{
		Text: "event: delta\ndata: one\n\ndata: two\n\n",
	})
	r := FromResponse(resp)
	defer r.Close()

	ev1, err := r.Next()
	if err != nil || ev1.Type != "delta" || ev1.Data != "one" {
		t.Fatalf("first event = %+v, err %v", ev1, err)
	}
	ev2, err := r.Next()
	if err != nil || ev2.Data != "two" {
		t.Fatalf("second event = %+v, err %v", ev2, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
